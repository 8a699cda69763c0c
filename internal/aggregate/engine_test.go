package aggregate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/disputes"
)

func makeDispute(id, npi, payer, state string, q disputes.Quarter, batched bool, qpa, award float64, outcome disputes.Outcome) disputes.Dispute {
	return disputes.Dispute{
		ID:           id,
		ProviderName: "Provider " + npi,
		ProviderNPI:  npi,
		PayerName:    payer,
		Specialty:    "Emergency Medicine",
		Quarter:      q,
		Batched:      batched,
		QPA:          qpa,
		AwardAmount:  award,
		Outcome:      outcome,
		State:        state,
	}
}

func TestComputeBasicRates(t *testing.T) {
	q1 := disputes.Quarter{Year: 2024, Q: 1}
	ds := []disputes.Dispute{
		makeDispute("a", "111", "Acme", "TX", q1, true, 100, 600, disputes.OutcomeProvider),
		makeDispute("b", "111", "Acme", "TX", q1, true, 100, 200, disputes.OutcomePayer),
		makeDispute("c", "111", "Zenith", "OK", q1, false, 200, 800, disputes.OutcomeProvider),
		makeDispute("d", "111", "Acme", "TX", q1, true, 0, 500, disputes.OutcomePending),
	}

	aggs, err := Compute(context.Background(), ds, GroupByProvider)
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	agg := aggs["111"]
	require.NotNil(t, agg)
	assert.Equal(t, 4, agg.TotalDisputes)
	assert.Equal(t, 3, agg.DecidedDisputes)
	assert.Equal(t, 2, agg.Wins)

	require.True(t, agg.WinRate.Defined)
	assert.InDelta(t, 2.0/3.0, agg.WinRate.Value, 1e-9)

	require.True(t, agg.BatchRate.Defined)
	assert.InDelta(t, 0.75, agg.BatchRate.Value, 1e-9)

	// Zero-QPA record is excluded from ratio metrics, not treated as zero.
	require.True(t, agg.AvgAwardToQPA.Defined)
	assert.InDelta(t, (6.0+2.0+4.0)/3.0, agg.AvgAwardToQPA.Value, 1e-9)
	require.True(t, agg.MaxAwardToQPA.Defined)
	assert.InDelta(t, 6.0, agg.MaxAwardToQPA.Value, 1e-9)

	assert.Equal(t, 2, agg.StateCount)
	assert.Equal(t, 2, agg.PayerCount)
	assert.Equal(t, "Acme", agg.TopPayer)
	require.True(t, agg.TopPayerShare.Defined)
	assert.InDelta(t, 0.75, agg.TopPayerShare.Value, 1e-9)
}

func TestComputeGrowthAcrossAdjacentQuarters(t *testing.T) {
	q1 := disputes.Quarter{Year: 2024, Q: 1}
	q2 := disputes.Quarter{Year: 2024, Q: 2}

	var ds []disputes.Dispute
	for i := 0; i < 10; i++ {
		ds = append(ds, makeDispute(fmt.Sprintf("p%d", i), "111", "Acme", "TX", q1, false, 100, 100, disputes.OutcomeProvider))
	}
	for i := 0; i < 35; i++ {
		ds = append(ds, makeDispute(fmt.Sprintf("c%d", i), "111", "Acme", "TX", q2, false, 100, 100, disputes.OutcomeProvider))
	}

	aggs, err := Compute(context.Background(), ds, GroupByProvider)
	require.NoError(t, err)

	agg := aggs["111"]
	require.True(t, agg.GrowthRate.Defined)
	assert.InDelta(t, 2.5, agg.GrowthRate.Value, 1e-9)
	assert.Equal(t, q2, agg.LatestQuarter)
}

func TestComputeGrowthUndefinedWithoutPriorQuarter(t *testing.T) {
	q2 := disputes.Quarter{Year: 2024, Q: 2}
	ds := []disputes.Dispute{
		makeDispute("a", "111", "Acme", "TX", q2, false, 100, 100, disputes.OutcomeProvider),
		makeDispute("b", "111", "Acme", "TX", q2, false, 100, 100, disputes.OutcomeProvider),
	}

	aggs, err := Compute(context.Background(), ds, GroupByProvider)
	require.NoError(t, err)

	// First-ever quarter: growth is undefined, not zero and not infinite.
	assert.False(t, aggs["111"].GrowthRate.Defined)
}

func TestComputeGapQuarterYieldsUndefinedGrowth(t *testing.T) {
	q1 := disputes.Quarter{Year: 2024, Q: 1}
	q3 := disputes.Quarter{Year: 2024, Q: 3}
	ds := []disputes.Dispute{
		makeDispute("a", "111", "Acme", "TX", q1, false, 100, 100, disputes.OutcomeProvider),
		makeDispute("b", "111", "Acme", "TX", q3, false, 100, 100, disputes.OutcomeProvider),
	}

	aggs, err := Compute(context.Background(), ds, GroupByProvider)
	require.NoError(t, err)

	// 2024Q2 had zero volume, so latest-quarter growth does not apply.
	assert.False(t, aggs["111"].GrowthRate.Defined)
}

func TestComputeUndefinedMetricsWithNoData(t *testing.T) {
	q1 := disputes.Quarter{Year: 2024, Q: 1}
	ds := []disputes.Dispute{
		makeDispute("a", "111", "Acme", "TX", q1, false, 0, 500, disputes.OutcomePending),
	}

	aggs, err := Compute(context.Background(), ds, GroupByProvider)
	require.NoError(t, err)

	agg := aggs["111"]
	assert.False(t, agg.WinRate.Defined, "no decided disputes")
	assert.False(t, agg.AvgAwardToQPA.Defined, "no usable QPA")
	assert.False(t, agg.MaxAwardToQPA.Defined)
}

func TestComputeDeterministicAcrossRuns(t *testing.T) {
	var ds []disputes.Dispute
	for i := 0; i < 500; i++ {
		npi := fmt.Sprintf("%03d", i%17)
		q := disputes.Quarter{Year: 2024, Q: i%4 + 1}
		state := []string{"TX", "CA", "NY", "FL"}[i%4]
		payer := []string{"Acme", "Zenith", "Unity"}[i%3]
		outcome := []disputes.Outcome{disputes.OutcomeProvider, disputes.OutcomePayer, disputes.OutcomePending}[i%3]
		ds = append(ds, makeDispute(fmt.Sprintf("d%d", i), npi, payer, state, q, i%2 == 0, float64(100+i), float64(200+i), outcome))
	}

	first, err := Compute(context.Background(), ds, GroupByProvider)
	require.NoError(t, err)

	// Parallel partitioned aggregation must be stable run to run.
	for run := 0; run < 5; run++ {
		again, err := Compute(context.Background(), ds, GroupByProvider)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeGroupByDimensions(t *testing.T) {
	q1 := disputes.Quarter{Year: 2024, Q: 1}
	ds := []disputes.Dispute{
		makeDispute("a", "111", "Acme", "TX", q1, false, 100, 100, disputes.OutcomeProvider),
		makeDispute("b", "222", "Acme", "CA", q1, false, 100, 100, disputes.OutcomePayer),
	}

	byState, err := Compute(context.Background(), ds, GroupByState)
	require.NoError(t, err)
	assert.Len(t, byState, 2)
	require.True(t, byState["TX"].ShareOfTotal.Defined)
	assert.InDelta(t, 0.5, byState["TX"].ShareOfTotal.Value, 1e-9)

	byPayer, err := Compute(context.Background(), ds, GroupByPayer)
	require.NoError(t, err)
	assert.Len(t, byPayer, 1)
	assert.Equal(t, 2, byPayer["Acme"].TotalDisputes)

	_, err = Compute(context.Background(), ds, GroupBy("bogus"))
	assert.Error(t, err)
}

func TestMetricJSONRoundTrip(t *testing.T) {
	out, err := Defined(0.5).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "0.5", string(out))

	out, err = Undefined.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	var m Metric
	require.NoError(t, m.UnmarshalJSON([]byte("null")))
	assert.False(t, m.Defined)
	require.NoError(t, m.UnmarshalJSON([]byte("2.25")))
	assert.True(t, m.Defined)
	assert.Equal(t, 2.25, m.Value)
}
