package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSVMapsPUFHeaders(t *testing.T) {
	input := strings.Join([]string{
		`Dispute Number,Provider/Facility Name,Provider/Facility NPI Number,Health Plan/Issuer Name,Practice/Facility Specialty or Type,Quarter,Type of Dispute,Qualifying Payment Amount,Payment Determination Amount,Payment Determination Outcome,Location of Service,Ignored Column`,
		`D-100,Lone Star Emergency Group,1234567890,Acme Health,Emergency Medicine,2024Q1,Batched,"$1,000.00",6000,In Favor of Provider/Facility/AA Provider,TX,whatever`,
	}, "\n")

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "D-100", rec[FieldDisputeNumber])
	assert.Equal(t, "1234567890", rec[FieldProviderNPI])
	assert.Equal(t, "Acme Health", rec[FieldPayerName])
	assert.Equal(t, "2024Q1", rec[FieldQuarter])
	assert.Equal(t, "Batched", rec[FieldDisputeType])
	assert.Equal(t, "$1,000.00", rec[FieldQPA])
	assert.Equal(t, "TX", rec[FieldState])
	_, hasIgnored := rec["Ignored Column"]
	assert.False(t, hasIgnored)
}

func TestReadCSVShortNamesAndCaseInsensitivity(t *testing.T) {
	input := strings.Join([]string{
		`PROVIDER_NPI,payer_name,Quarter,outcome,state`,
		`1234567890,Acme Health,2024-Q2,,ok`,
	}, "\n")

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1234567890", records[0][FieldProviderNPI])
	assert.Equal(t, "2024-Q2", records[0][FieldQuarter])
}

func TestReadCSVMalformedRowBecomesEmptyRecord(t *testing.T) {
	input := strings.Join([]string{
		`provider_npi,payer_name,quarter,state`,
		`1234567890,Acme Health,2024Q1,TX`,
		`only-two-fields,oops`,
	}, "\n")

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEmpty(t, records[0])
	// The short row carries no fields; the loader will count it malformed.
	assert.Empty(t, records[1])
}

func TestReadCSVRejectsUnknownHeader(t *testing.T) {
	input := "foo,bar\n1,2\n"
	_, err := ReadCSV(strings.NewReader(input))
	assert.Error(t, err)
}
