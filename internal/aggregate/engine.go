package aggregate

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/disputes"
)

// Compute rolls up disputes along the given dimension. The pass is a single
// accumulation over each group's records followed by a finalize step turning
// sums into rates; groups are independent and aggregated concurrently. Output
// is identical regardless of partitioning or worker order.
func Compute(ctx context.Context, ds []disputes.Dispute, groupBy GroupBy) (map[string]*Aggregate, error) {
	if !groupBy.Valid() {
		return nil, fmt.Errorf("unknown grouping dimension %q", groupBy)
	}

	partitions := make(map[string][]disputes.Dispute)
	for _, d := range ds {
		key := groupBy.keyOf(d)
		if key == "" {
			continue
		}
		partitions[key] = append(partitions[key], d)
	}

	grandTotal := 0
	for _, part := range partitions {
		grandTotal += len(part)
	}

	var (
		mu      sync.Mutex
		results = make(map[string]*Aggregate, len(partitions))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for key, part := range partitions {
		key, part := key, part
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			acc := newAccumulator()
			for _, d := range part {
				acc.add(d)
			}
			agg := acc.finalize(key, groupBy, grandTotal)

			mu.Lock()
			results[key] = agg
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// accumulator holds the running sums for one grouping key
type accumulator struct {
	total   int
	decided int
	wins    int
	batched int

	ratioSum   float64
	ratioCount int
	ratioMax   float64

	quarterCounts map[disputes.Quarter]int
	quarterStates map[disputes.Quarter]map[string]struct{}
	states        map[string]struct{}
	payers        map[string]int
}

func newAccumulator() *accumulator {
	return &accumulator{
		quarterCounts: make(map[disputes.Quarter]int),
		quarterStates: make(map[disputes.Quarter]map[string]struct{}),
		states:        make(map[string]struct{}),
		payers:        make(map[string]int),
	}
}

func (a *accumulator) add(d disputes.Dispute) {
	a.total++
	if d.Outcome.Decided() {
		a.decided++
		if d.Outcome == disputes.OutcomeProvider {
			a.wins++
		}
	}
	if d.Batched {
		a.batched++
	}

	// Award/QPA ratio only where the benchmark exists
	if d.QPA > 0 {
		ratio := d.AwardAmount / d.QPA
		a.ratioSum += ratio
		if a.ratioCount == 0 || ratio > a.ratioMax {
			a.ratioMax = ratio
		}
		a.ratioCount++
	}

	if !d.Quarter.IsZero() {
		a.quarterCounts[d.Quarter]++
		if d.State != "" {
			qs, ok := a.quarterStates[d.Quarter]
			if !ok {
				qs = make(map[string]struct{})
				a.quarterStates[d.Quarter] = qs
			}
			qs[d.State] = struct{}{}
		}
	}
	if d.State != "" {
		a.states[d.State] = struct{}{}
	}
	if d.PayerName != "" {
		a.payers[d.PayerName]++
	}
}

func (a *accumulator) finalize(key string, groupBy GroupBy, grandTotal int) *Aggregate {
	agg := &Aggregate{
		Key:             key,
		GroupBy:         groupBy,
		TotalDisputes:   a.total,
		DecidedDisputes: a.decided,
		Wins:            a.wins,
		BatchedDisputes: a.batched,
		StateCount:      len(a.states),
		PayerCount:      len(a.payers),
		QuarterCounts:   make(map[string]int, len(a.quarterCounts)),
	}

	if a.decided > 0 {
		agg.WinRate = Defined(float64(a.wins) / float64(a.decided))
	}
	if a.total > 0 {
		agg.BatchRate = Defined(float64(a.batched) / float64(a.total))
	}
	if a.ratioCount > 0 {
		agg.AvgAwardToQPA = Defined(a.ratioSum / float64(a.ratioCount))
		agg.MaxAwardToQPA = Defined(a.ratioMax)
	}

	var latest disputes.Quarter
	haveQuarter := false
	for q, n := range a.quarterCounts {
		agg.QuarterCounts[q.String()] = n
		if !haveQuarter || q.Index() > latest.Index() {
			latest = q
			haveQuarter = true
		}
	}

	if haveQuarter {
		agg.LatestQuarter = latest
		prev := latest.Prev()
		prevCount := a.quarterCounts[prev]
		if prevCount > 0 {
			curCount := a.quarterCounts[latest]
			agg.GrowthRate = Defined(float64(curCount-prevCount) / float64(prevCount))
		}
		agg.StatesLatest = len(a.quarterStates[latest])
		agg.StatesPrevious = len(a.quarterStates[prev])
	}

	if a.total > 0 && len(a.payers) > 0 {
		topPayer, topCount := "", 0
		for payer, n := range a.payers {
			if n > topCount || (n == topCount && payer < topPayer) {
				topPayer, topCount = payer, n
			}
		}
		agg.TopPayer = topPayer
		agg.TopPayerShare = Defined(float64(topCount) / float64(a.total))
	}

	if grandTotal > 0 {
		agg.ShareOfTotal = Defined(float64(a.total) / float64(grandTotal))
	}

	return agg
}
