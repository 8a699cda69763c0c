package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// headerAliases maps export column headings onto canonical RawRecord fields.
// Covers both the federal IDR PUF headings and the short names used by
// internal extracts; matching is case-insensitive.
var headerAliases = map[string]string{
	"dispute number":                       FieldDisputeNumber,
	"dispute_number":                       FieldDisputeNumber,
	"provider/facility name":               FieldProviderName,
	"provider_name":                        FieldProviderName,
	"provider/facility npi number":         FieldProviderNPI,
	"provider_npi":                         FieldProviderNPI,
	"health plan/issuer name":              FieldPayerName,
	"payer_name":                           FieldPayerName,
	"practice/facility specialty or type":  FieldSpecialty,
	"specialty":                            FieldSpecialty,
	"quarter":                              FieldQuarter,
	"type of dispute":                      FieldDisputeType,
	"dispute_type":                         FieldDisputeType,
	"qualifying payment amount":            FieldQPA,
	"qpa":                                  FieldQPA,
	"payment determination amount":         FieldAwardAmount,
	"award_amount":                         FieldAwardAmount,
	"payment determination outcome":        FieldOutcome,
	"outcome":                              FieldOutcome,
	"location of service":                  FieldState,
	"state":                                FieldState,
}

// ReadCSV parses a quarterly CSV export into raw records. Column order is
// irrelevant; unrecognized columns are ignored. Rows with the wrong field
// count are returned as empty records so the loader counts them as malformed
// rather than aborting the batch.
func ReadCSV(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	fields := make([]string, len(header))
	known := 0
	for i, h := range header {
		normalized := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := headerAliases[normalized]; ok {
			fields[i] = canonical
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("CSV header has no recognized columns")
	}

	var records []RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		rec := make(RawRecord, known)
		if len(row) == len(header) {
			for i, value := range row {
				if fields[i] != "" {
					rec[fields[i]] = value
				}
			}
		}
		records = append(records, rec)
	}

	return records, nil
}
