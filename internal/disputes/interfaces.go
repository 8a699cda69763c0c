package disputes

import "context"

// DisputeStore is the durable, deduplicated collection of dispute records.
// UpsertBatch is idempotent: presenting the same dispute ID twice leaves
// exactly one logical record, with the later write replacing the earlier one
// wholesale (never a partial field merge).
type DisputeStore interface {
	// UpsertBatch merges a batch atomically with respect to readers and
	// returns the number of newly inserted (not replaced) records.
	UpsertBatch(ctx context.Context, batch []Dispute) (int, error)

	// QueryDisputes returns disputes matching the filter.
	QueryDisputes(ctx context.Context, filter Filter) ([]Dispute, error)

	// ProviderIDs returns the distinct provider NPIs present in the store.
	ProviderIDs(ctx context.Context) ([]string, error)
}
