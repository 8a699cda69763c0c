package disputes

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome represents the payment determination outcome of a dispute
type Outcome string

const (
	OutcomeProvider Outcome = "provider"
	OutcomePayer    Outcome = "payer"
	OutcomePending  Outcome = "pending"
)

// Decided reports whether the dispute has a final determination
func (o Outcome) Decided() bool {
	return o == OutcomeProvider || o == OutcomePayer
}

// Quarter identifies a filing quarter (year + quarter number)
type Quarter struct {
	Year int `json:"year"`
	Q    int `json:"q"`
}

// ParseQuarter parses "2024Q1" or "2024-Q1"
func ParseQuarter(s string) (Quarter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	parts := strings.SplitN(s, "Q", 2)
	if len(parts) != 2 {
		return Quarter{}, fmt.Errorf("invalid quarter %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Quarter{}, fmt.Errorf("invalid quarter year %q", s)
	}
	q, err := strconv.Atoi(parts[1])
	if err != nil || q < 1 || q > 4 {
		return Quarter{}, fmt.Errorf("invalid quarter number %q", s)
	}
	return Quarter{Year: year, Q: q}, nil
}

// String formats the quarter as "2024Q1"
func (q Quarter) String() string {
	return fmt.Sprintf("%dQ%d", q.Year, q.Q)
}

// Index returns a monotonically increasing ordinal, so adjacency checks are
// simple integer arithmetic across year boundaries
func (q Quarter) Index() int {
	return q.Year*4 + (q.Q - 1)
}

// Prev returns the immediately preceding calendar quarter
func (q Quarter) Prev() Quarter {
	if q.Q == 1 {
		return Quarter{Year: q.Year - 1, Q: 4}
	}
	return Quarter{Year: q.Year, Q: q.Q - 1}
}

// IsZero reports whether the quarter is unset
func (q Quarter) IsZero() bool {
	return q.Year == 0 && q.Q == 0
}

// Dispute represents one resolved or pending IDR case
type Dispute struct {
	ID           string  `json:"id" db:"id"`
	ProviderName string  `json:"provider_name" db:"provider_name"`
	ProviderNPI  string  `json:"provider_npi" db:"provider_npi"`
	PayerName    string  `json:"payer_name" db:"payer_name"`
	Specialty    string  `json:"specialty" db:"specialty"`
	Quarter      Quarter `json:"quarter" db:"quarter"`
	Batched      bool    `json:"batched" db:"batched"`
	QPA          float64 `json:"qpa" db:"qpa"`
	AwardAmount  float64 `json:"award_amount" db:"award_amount"`
	Outcome      Outcome `json:"outcome" db:"outcome"`
	State        string  `json:"state" db:"state"`
}

// Filter narrows dispute queries. Zero-valued fields are not applied.
type Filter struct {
	ProviderNPI string   `json:"provider_npi,omitempty" form:"provider_npi"`
	PayerName   string   `json:"payer_name,omitempty" form:"payer_name"`
	Specialty   string   `json:"specialty,omitempty" form:"specialty"`
	State       string   `json:"state,omitempty" form:"state"`
	FromQuarter *Quarter `json:"from_quarter,omitempty"`
	ToQuarter   *Quarter `json:"to_quarter,omitempty"`
}

// Key returns a canonical cache key for the filter. Field order is fixed and
// values are normalized, so equivalent filters collapse to the same key.
func (f Filter) Key() string {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	quarter := func(q *Quarter) string {
		if q == nil {
			return ""
		}
		return q.String()
	}
	return strings.Join([]string{
		"npi=" + norm(f.ProviderNPI),
		"payer=" + norm(f.PayerName),
		"specialty=" + norm(f.Specialty),
		"state=" + norm(f.State),
		"from=" + quarter(f.FromQuarter),
		"to=" + quarter(f.ToQuarter),
	}, "|")
}

// Matches reports whether the dispute satisfies the filter
func (f Filter) Matches(d Dispute) bool {
	eq := func(want, got string) bool {
		return want == "" || strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
	}
	if !eq(f.ProviderNPI, d.ProviderNPI) || !eq(f.PayerName, d.PayerName) ||
		!eq(f.Specialty, d.Specialty) || !eq(f.State, d.State) {
		return false
	}
	if f.FromQuarter != nil && d.Quarter.Index() < f.FromQuarter.Index() {
		return false
	}
	if f.ToQuarter != nil && d.Quarter.Index() > f.ToQuarter.Index() {
		return false
	}
	return true
}
