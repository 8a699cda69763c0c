package disputes

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL-backed dispute store
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the store contract.
var _ DisputeStore = (*Repository)(nil)

// NewRepository creates a new dispute repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertBatch merges a batch of disputes in a single transaction so readers
// observe either all-prior or all-post state, never a partial batch. Conflicts
// on the dispute ID replace the full record (last-write-wins). The returned
// count covers true inserts only; replaces of existing IDs are not counted.
func (r *Repository) UpsertBatch(ctx context.Context, batch []Dispute) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert batch: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO disputes (
			id, provider_name, provider_npi, payer_name, specialty,
			quarter_year, quarter_q, batched, qpa, award_amount, outcome, state
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			provider_name = EXCLUDED.provider_name,
			provider_npi  = EXCLUDED.provider_npi,
			payer_name    = EXCLUDED.payer_name,
			specialty     = EXCLUDED.specialty,
			quarter_year  = EXCLUDED.quarter_year,
			quarter_q     = EXCLUDED.quarter_q,
			batched       = EXCLUDED.batched,
			qpa           = EXCLUDED.qpa,
			award_amount  = EXCLUDED.award_amount,
			outcome       = EXCLUDED.outcome,
			state         = EXCLUDED.state,
			updated_at    = NOW()
		RETURNING (xmax = 0) AS inserted
	`

	b := &pgx.Batch{}
	for _, d := range batch {
		b.Queue(query,
			d.ID,
			d.ProviderName,
			d.ProviderNPI,
			d.PayerName,
			d.Specialty,
			d.Quarter.Year,
			d.Quarter.Q,
			d.Batched,
			d.QPA,
			d.AwardAmount,
			d.Outcome,
			d.State,
		)
	}

	results := tx.SendBatch(ctx, b)
	inserted := 0
	for range batch {
		var isInsert bool
		if err := results.QueryRow().Scan(&isInsert); err != nil {
			results.Close()
			return 0, fmt.Errorf("upsert dispute: %w", err)
		}
		if isInsert {
			inserted++
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close upsert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert batch: %w", err)
	}

	return inserted, nil
}

// QueryDisputes returns disputes matching the filter, ordered by ID for
// deterministic results
func (r *Repository) QueryDisputes(ctx context.Context, filter Filter) ([]Dispute, error) {
	var (
		conditions []string
		args       []any
	)

	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.ProviderNPI != "" {
		add("provider_npi = $%d", strings.TrimSpace(filter.ProviderNPI))
	}
	if filter.PayerName != "" {
		add("LOWER(payer_name) = LOWER($%d)", strings.TrimSpace(filter.PayerName))
	}
	if filter.Specialty != "" {
		add("LOWER(specialty) = LOWER($%d)", strings.TrimSpace(filter.Specialty))
	}
	if filter.State != "" {
		add("UPPER(state) = UPPER($%d)", strings.TrimSpace(filter.State))
	}
	if filter.FromQuarter != nil {
		add("(quarter_year * 4 + quarter_q - 1) >= $%d", filter.FromQuarter.Index())
	}
	if filter.ToQuarter != nil {
		add("(quarter_year * 4 + quarter_q - 1) <= $%d", filter.ToQuarter.Index())
	}

	query := `
		SELECT id, provider_name, provider_npi, payer_name, specialty,
		       quarter_year, quarter_q, batched, qpa, award_amount, outcome, state
		FROM disputes
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query disputes: %w", err)
	}
	defer rows.Close()

	result := make([]Dispute, 0)
	for rows.Next() {
		var d Dispute
		err := rows.Scan(
			&d.ID,
			&d.ProviderName,
			&d.ProviderNPI,
			&d.PayerName,
			&d.Specialty,
			&d.Quarter.Year,
			&d.Quarter.Q,
			&d.Batched,
			&d.QPA,
			&d.AwardAmount,
			&d.Outcome,
			&d.State,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read disputes: %w", err)
	}

	return result, nil
}

// ProviderIDs returns the distinct provider NPIs present in the store
func (r *Repository) ProviderIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT provider_npi FROM disputes ORDER BY provider_npi`)
	if err != nil {
		return nil, fmt.Errorf("query provider ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan provider id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read provider ids: %w", err)
	}

	return ids, nil
}
