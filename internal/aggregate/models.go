package aggregate

import (
	"encoding/json"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/disputes"
)

// GroupBy selects the rollup dimension
type GroupBy string

const (
	GroupByProvider  GroupBy = "provider"
	GroupBySpecialty GroupBy = "specialty"
	GroupByPayer     GroupBy = "payer"
	GroupByState     GroupBy = "state"
	GroupByQuarter   GroupBy = "quarter"
)

// Valid reports whether the dimension is a known grouping
func (g GroupBy) Valid() bool {
	switch g {
	case GroupByProvider, GroupBySpecialty, GroupByPayer, GroupByState, GroupByQuarter:
		return true
	}
	return false
}

// keyOf returns the grouping key for a dispute
func (g GroupBy) keyOf(d disputes.Dispute) string {
	switch g {
	case GroupByProvider:
		if d.ProviderNPI != "" {
			return d.ProviderNPI
		}
		return d.ProviderName
	case GroupBySpecialty:
		return d.Specialty
	case GroupByPayer:
		return d.PayerName
	case GroupByState:
		return d.State
	case GroupByQuarter:
		return d.Quarter.String()
	}
	return ""
}

// Metric is a rate or ratio that may be undefined when its denominator is
// zero. An undefined metric is never NaN and never a manufactured zero;
// downstream rules must treat it as "does not apply".
type Metric struct {
	Value   float64
	Defined bool
}

// Defined constructs a defined metric
func Defined(v float64) Metric {
	return Metric{Value: v, Defined: true}
}

// Undefined is the zero metric sentinel
var Undefined = Metric{}

// Exceeds reports whether the metric is defined and strictly greater than the
// threshold. Undefined metrics never exceed anything.
func (m Metric) Exceeds(threshold float64) bool {
	return m.Defined && m.Value > threshold
}

// MarshalJSON renders undefined metrics as null
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON accepts null as undefined
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

// Aggregate holds the rollup metrics for one grouping key. It is a pure
// function of the dispute set it was computed from and is safe to discard and
// rebuild at any time.
type Aggregate struct {
	Key     string  `json:"key"`
	GroupBy GroupBy `json:"group_by"`

	TotalDisputes   int `json:"total_disputes"`
	DecidedDisputes int `json:"decided_disputes"`
	Wins            int `json:"wins"`
	BatchedDisputes int `json:"batched_disputes"`

	WinRate       Metric `json:"win_rate"`
	BatchRate     Metric `json:"batch_rate"`
	AvgAwardToQPA Metric `json:"avg_award_to_qpa"`
	MaxAwardToQPA Metric `json:"max_award_to_qpa"`

	// GrowthRate compares the latest quarter present against the
	// immediately preceding calendar quarter; undefined when the preceding
	// quarter had no volume.
	GrowthRate    Metric           `json:"growth_rate"`
	LatestQuarter disputes.Quarter `json:"latest_quarter"`
	QuarterCounts map[string]int   `json:"quarter_counts"`

	StateCount     int `json:"state_count"`
	StatesLatest   int `json:"states_latest_quarter"`
	StatesPrevious int `json:"states_previous_quarter"`

	PayerCount    int    `json:"payer_count"`
	TopPayer      string `json:"top_payer"`
	TopPayerShare Metric `json:"top_payer_share"`

	// ShareOfTotal is this group's share of all disputes in the computed
	// set, the volume-concentration context for ranking.
	ShareOfTotal Metric `json:"share_of_total"`
}
