package risk

import (
	"math"
	"sort"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
)

// Engine evaluates the fixed rule table and computes risk scores from its
// configured thresholds and weights. Evaluation is pure: the engine keeps no
// state between calls, and each call produces the complete current flag set.
type Engine struct {
	thresholds Thresholds
	weights    Weights
}

// NewEngine creates a flagging and scoring engine
func NewEngine(thresholds Thresholds, weights Weights) *Engine {
	return &Engine{thresholds: thresholds, weights: weights}
}

// EvaluateFlags applies every rule to the aggregate snapshot. Rules over
// undefined metrics do not apply — they never fire and never count against
// the provider. Output is sorted by kind so it is stable across runs.
func (e *Engine) EvaluateFlags(agg *aggregate.Aggregate) []Flag {
	t := e.thresholds
	flags := make([]Flag, 0)

	if agg.TotalDisputes > t.HighVolume {
		flags = append(flags, Flag{
			Kind:      FlagHighVolume,
			Value:     float64(agg.TotalDisputes),
			Threshold: float64(t.HighVolume),
		})
	}

	if agg.AvgAwardToQPA.Exceeds(t.ExtremePricing) {
		flags = append(flags, Flag{
			Kind:      FlagExtremePricing,
			Value:     agg.AvgAwardToQPA.Value,
			Threshold: t.ExtremePricing,
		})
	}

	if agg.BatchRate.Exceeds(t.BatchAbuse) {
		flags = append(flags, Flag{
			Kind:      FlagBatchAbuse,
			Value:     agg.BatchRate.Value,
			Threshold: t.BatchAbuse,
		})
	}

	if agg.GrowthRate.Exceeds(t.VolumeSpike) {
		flags = append(flags, Flag{
			Kind:      FlagVolumeSpike,
			Value:     agg.GrowthRate.Value,
			Threshold: t.VolumeSpike,
		})
	}

	// Fires when the provider's distinct-state footprint crossed the
	// baseline between the previous and latest periods.
	if agg.StatesPrevious <= t.GeoBaseline && agg.StatesLatest > t.GeoBaseline {
		flags = append(flags, Flag{
			Kind:      FlagGeoExpansion,
			Value:     float64(agg.StatesLatest),
			Threshold: float64(t.GeoBaseline),
		})
	}

	if agg.TopPayerShare.Exceeds(t.PayerTargeting) {
		flags = append(flags, Flag{
			Kind:      FlagPayerTargeting,
			Value:     agg.TopPayerShare.Value,
			Threshold: t.PayerTargeting,
		})
	}

	sort.Slice(flags, func(i, j int) bool { return flags[i].Kind < flags[j].Kind })
	return flags
}

// Score combines the fired flags with a continuous base component into a
// single score clamped to [0,100]. The base grows with raw win rate and
// dispute volume so providers just below a threshold still rank above
// providers with no signal at all. The score is monotone non-decreasing in
// every contributing metric.
func (e *Engine) Score(agg *aggregate.Aggregate, flags []Flag) RiskScore {
	breakdown := make([]Contribution, 0, len(flags)+1)

	total := 0.0
	for _, f := range flags {
		points := e.weights.For(f.Kind)
		total += points
		breakdown = append(breakdown, Contribution{Source: string(f.Kind), Points: points})
	}

	base := e.baseComponent(agg)
	total += base
	breakdown = append(breakdown, Contribution{Source: "base", Points: base})

	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return RiskScore{
		Key:       agg.Key,
		Score:     score,
		Base:      base,
		Breakdown: breakdown,
	}
}

// baseComponent contributes up to 5 points for volume and up to 5 for win
// rate, both linear, so there is no cliff at exact threshold crossings
func (e *Engine) baseComponent(agg *aggregate.Aggregate) float64 {
	base := 0.0

	if e.thresholds.HighVolume > 0 {
		volumeShare := float64(agg.TotalDisputes) / float64(e.thresholds.HighVolume)
		if volumeShare > 1 {
			volumeShare = 1
		}
		base += 5 * volumeShare
	}

	if agg.WinRate.Defined {
		base += 5 * agg.WinRate.Value
	}

	return base
}
