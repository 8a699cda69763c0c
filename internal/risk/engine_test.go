package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
)

func flagKinds(flags []Flag) []FlagKind {
	kinds := make([]FlagKind, 0, len(flags))
	for _, f := range flags {
		kinds = append(kinds, f.Kind)
	}
	return kinds
}

func TestEvaluateFlags(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), DefaultWeights())

	tests := []struct {
		name     string
		agg      *aggregate.Aggregate
		expected []FlagKind
	}{
		{
			name:     "no signal",
			agg:      &aggregate.Aggregate{Key: "100", TotalDisputes: 40},
			expected: []FlagKind{},
		},
		{
			name:     "volume at threshold does not fire",
			agg:      &aggregate.Aggregate{Key: "100", TotalDisputes: 1000},
			expected: []FlagKind{},
		},
		{
			name:     "volume above threshold fires",
			agg:      &aggregate.Aggregate{Key: "100", TotalDisputes: 1001},
			expected: []FlagKind{FlagHighVolume},
		},
		{
			name: "pricing at the cut-off does not fire",
			agg: &aggregate.Aggregate{
				Key:           "100",
				TotalDisputes: 50,
				AvgAwardToQPA: aggregate.Defined(5.0),
			},
			expected: []FlagKind{},
		},
		{
			name: "extreme pricing fires",
			agg: &aggregate.Aggregate{
				Key:           "100",
				TotalDisputes: 50,
				AvgAwardToQPA: aggregate.Defined(5.1),
			},
			expected: []FlagKind{FlagExtremePricing},
		},
		{
			name: "batch abuse fires",
			agg: &aggregate.Aggregate{
				Key:           "100",
				TotalDisputes: 100,
				BatchRate:     aggregate.Defined(0.95),
			},
			expected: []FlagKind{FlagBatchAbuse},
		},
		{
			name: "volume spike fires",
			agg: &aggregate.Aggregate{
				Key:           "100",
				TotalDisputes: 300,
				GrowthRate:    aggregate.Defined(2.5),
			},
			expected: []FlagKind{FlagVolumeSpike},
		},
		{
			name: "undefined growth never fires",
			agg: &aggregate.Aggregate{
				Key:           "100",
				TotalDisputes: 300,
				GrowthRate:    aggregate.Undefined,
			},
			expected: []FlagKind{},
		},
		{
			name: "geographic expansion fires on baseline crossing",
			agg: &aggregate.Aggregate{
				Key:            "100",
				TotalDisputes:  200,
				StatesPrevious: 8,
				StatesLatest:   12,
			},
			expected: []FlagKind{FlagGeoExpansion},
		},
		{
			name: "already above baseline does not fire",
			agg: &aggregate.Aggregate{
				Key:            "100",
				TotalDisputes:  200,
				StatesPrevious: 11,
				StatesLatest:   14,
			},
			expected: []FlagKind{},
		},
		{
			name: "latest at baseline does not fire",
			agg: &aggregate.Aggregate{
				Key:            "100",
				TotalDisputes:  200,
				StatesPrevious: 4,
				StatesLatest:   10,
			},
			expected: []FlagKind{},
		},
		{
			name: "payer targeting fires",
			agg: &aggregate.Aggregate{
				Key:           "100",
				TotalDisputes: 150,
				TopPayerShare: aggregate.Defined(0.85),
			},
			expected: []FlagKind{FlagPayerTargeting},
		},
		{
			name: "undefined metrics fire nothing",
			agg: &aggregate.Aggregate{
				Key:           "100",
				TotalDisputes: 500,
				WinRate:       aggregate.Undefined,
				BatchRate:     aggregate.Undefined,
				AvgAwardToQPA: aggregate.Undefined,
				GrowthRate:    aggregate.Undefined,
				TopPayerShare: aggregate.Undefined,
			},
			expected: []FlagKind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := engine.EvaluateFlags(tt.agg)
			assert.Equal(t, tt.expected, flagKinds(flags))
		})
	}
}

func TestEvaluateFlagsCarriesEvidence(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), DefaultWeights())

	flags := engine.EvaluateFlags(&aggregate.Aggregate{
		Key:           "100",
		TotalDisputes: 1500,
		AvgAwardToQPA: aggregate.Defined(6.0),
	})

	require.Len(t, flags, 2)
	assert.Equal(t, FlagExtremePricing, flags[0].Kind)
	assert.Equal(t, 6.0, flags[0].Value)
	assert.Equal(t, 5.0, flags[0].Threshold)
	assert.Equal(t, FlagHighVolume, flags[1].Kind)
	assert.Equal(t, 1500.0, flags[1].Value)
	assert.Equal(t, 1000.0, flags[1].Threshold)
}

func TestScoreHighRiskProvider(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), DefaultWeights())

	// A provider's first quarter in the data: heavy volume, almost all
	// batched, awards far above QPA. Growth is undefined with no prior
	// quarter, so volume-spike must stay quiet.
	agg := &aggregate.Aggregate{
		Key:           "1093817465",
		TotalDisputes: 1200,
		WinRate:       aggregate.Defined(0.95),
		BatchRate:     aggregate.Defined(0.92),
		AvgAwardToQPA: aggregate.Defined(6.0),
		GrowthRate:    aggregate.Undefined,
		StatesLatest:  3,
	}

	flags := engine.EvaluateFlags(agg)
	assert.Equal(t, []FlagKind{FlagBatchAbuse, FlagExtremePricing, FlagHighVolume}, flagKinds(flags))

	risk := engine.Score(agg, flags)
	assert.Equal(t, "1093817465", risk.Key)
	assert.GreaterOrEqual(t, risk.Score, 65)
	assert.LessOrEqual(t, risk.Score, 100)

	// 20 + 25 + 20 flag weights, base 5 volume + 4.75 win rate
	assert.Equal(t, 75, risk.Score)
	require.Len(t, risk.Breakdown, 4)
	assert.Equal(t, "base", risk.Breakdown[3].Source)
	assert.InDelta(t, 9.75, risk.Breakdown[3].Points, 1e-9)
}

func TestScoreMonotoneInVolume(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), DefaultWeights())

	prev := -1
	for _, total := range []int{0, 10, 200, 999, 1000, 1001, 5000, 100000} {
		agg := &aggregate.Aggregate{
			Key:           "100",
			TotalDisputes: total,
			WinRate:       aggregate.Defined(0.5),
			BatchRate:     aggregate.Defined(0.3),
		}
		risk := engine.Score(agg, engine.EvaluateFlags(agg))
		assert.GreaterOrEqual(t, risk.Score, prev, "score regressed at %d disputes", total)
		prev = risk.Score
	}
}

func TestScoreMonotoneInWinRate(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), DefaultWeights())

	prev := -1
	for _, rate := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
		agg := &aggregate.Aggregate{
			Key:           "100",
			TotalDisputes: 400,
			WinRate:       aggregate.Defined(rate),
		}
		risk := engine.Score(agg, engine.EvaluateFlags(agg))
		assert.GreaterOrEqual(t, risk.Score, prev, "score regressed at win rate %v", rate)
		prev = risk.Score
	}
}

func TestScoreClampedAtHundred(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), DefaultWeights())

	agg := &aggregate.Aggregate{
		Key:            "100",
		TotalDisputes:  50000,
		WinRate:        aggregate.Defined(1.0),
		BatchRate:      aggregate.Defined(1.0),
		AvgAwardToQPA:  aggregate.Defined(20.0),
		GrowthRate:     aggregate.Defined(9.0),
		StatesPrevious: 2,
		StatesLatest:   30,
		TopPayerShare:  aggregate.Defined(0.99),
	}

	flags := engine.EvaluateFlags(agg)
	require.Len(t, flags, 6)

	risk := engine.Score(agg, flags)
	assert.Equal(t, 100, risk.Score)
}

func TestScoreZeroSignal(t *testing.T) {
	engine := NewEngine(DefaultThresholds(), DefaultWeights())

	agg := &aggregate.Aggregate{Key: "100"}
	risk := engine.Score(agg, engine.EvaluateFlags(agg))
	assert.Equal(t, 0, risk.Score)
	assert.Zero(t, risk.Base)
}

func TestScoreCustomWeights(t *testing.T) {
	weights := Weights{HighVolume: 50}
	engine := NewEngine(DefaultThresholds(), weights)

	agg := &aggregate.Aggregate{Key: "100", TotalDisputes: 2000}
	flags := engine.EvaluateFlags(agg)
	require.Len(t, flags, 1)

	risk := engine.Score(agg, flags)

	// 50 flag points plus the 5-point volume base
	assert.Equal(t, 55, risk.Score)
}
