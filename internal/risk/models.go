package risk

import (
	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
)

// FlagKind names a fraud-pattern indicator
type FlagKind string

const (
	FlagHighVolume     FlagKind = "high-volume"
	FlagExtremePricing FlagKind = "extreme-pricing"
	FlagBatchAbuse     FlagKind = "batch-abuse"
	FlagVolumeSpike    FlagKind = "volume-spike"
	FlagGeoExpansion   FlagKind = "geographic-expansion"
	FlagPayerTargeting FlagKind = "payer-targeting"
)

// Flag records one fired indicator with its evidence: the metric value that
// triggered it and the threshold it exceeded
type Flag struct {
	Kind      FlagKind `json:"kind"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
}

// Contribution is one component of a risk score breakdown
type Contribution struct {
	Source string  `json:"source"`
	Points float64 `json:"points"`
}

// RiskScore is the bounded composite indicator for a provider
type RiskScore struct {
	Key       string         `json:"key"`
	Score     int            `json:"score"`
	Base      float64        `json:"base"`
	Breakdown []Contribution `json:"breakdown"`
}

// ProviderReport bundles everything the dashboard renders for one provider
type ProviderReport struct {
	Provider     string               `json:"provider"`
	ProviderName string               `json:"provider_name,omitempty"`
	Aggregate    *aggregate.Aggregate `json:"aggregate"`
	Flags        []Flag               `json:"flags"`
	Risk         RiskScore            `json:"risk"`
}
