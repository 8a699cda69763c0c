package ingest

// RawRecord is one loosely-typed row from a quarterly export. Keys are the
// canonical field names produced by the CSV reader; the loader does not care
// which file format they came from.
type RawRecord map[string]string

// Canonical RawRecord field names.
const (
	FieldDisputeNumber = "dispute_number"
	FieldProviderName  = "provider_name"
	FieldProviderNPI   = "provider_npi"
	FieldPayerName     = "payer_name"
	FieldSpecialty     = "specialty"
	FieldQuarter       = "quarter"
	FieldDisputeType   = "dispute_type"
	FieldQPA           = "qpa"
	FieldAwardAmount   = "award_amount"
	FieldOutcome       = "outcome"
	FieldState         = "state"
)

// Report summarizes one ingestion batch
type Report struct {
	Total     int `json:"total"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Malformed int `json:"malformed"`
}

// Succeeded returns the number of records the store accepted
func (r *Report) Succeeded() int {
	return r.Inserted + r.Updated
}

// ProgressFunc receives incremental progress while a batch is processed.
// processed counts records handled so far; total is the batch size.
type ProgressFunc func(processed, total int)
