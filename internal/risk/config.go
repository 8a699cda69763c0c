package risk

import (
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/config"
)

// Thresholds are the flagging cut-offs. Every value is an overridable
// configuration default, not fixed law.
type Thresholds struct {
	HighVolume     int     // total dispute count
	ExtremePricing float64 // average award/QPA ratio
	BatchAbuse     float64 // batch rate fraction
	VolumeSpike    float64 // quarter-over-quarter growth fraction
	GeoBaseline    int     // distinct-state baseline crossed between periods
	PayerTargeting float64 // top-payer concentration share
}

// DefaultThresholds returns the product-default cut-offs
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighVolume:     1000,
		ExtremePricing: 5.0,
		BatchAbuse:     0.90,
		VolumeSpike:    2.0,
		GeoBaseline:    10,
		PayerTargeting: 0.80,
	}
}

// Weights are the per-flag score contributions
type Weights struct {
	HighVolume     float64
	ExtremePricing float64
	BatchAbuse     float64
	VolumeSpike    float64
	GeoExpansion   float64
	PayerTargeting float64
}

// DefaultWeights returns the product-default flag weights
func DefaultWeights() Weights {
	return Weights{
		HighVolume:     20,
		ExtremePricing: 25,
		BatchAbuse:     20,
		VolumeSpike:    15,
		GeoExpansion:   10,
		PayerTargeting: 10,
	}
}

// For returns the weight for a flag kind
func (w Weights) For(kind FlagKind) float64 {
	switch kind {
	case FlagHighVolume:
		return w.HighVolume
	case FlagExtremePricing:
		return w.ExtremePricing
	case FlagBatchAbuse:
		return w.BatchAbuse
	case FlagVolumeSpike:
		return w.VolumeSpike
	case FlagGeoExpansion:
		return w.GeoExpansion
	case FlagPayerTargeting:
		return w.PayerTargeting
	}
	return 0
}

// ThresholdsFromConfig builds thresholds from the application configuration
func ThresholdsFromConfig(cfg config.RiskConfig) Thresholds {
	return Thresholds{
		HighVolume:     cfg.HighVolumeThreshold,
		ExtremePricing: cfg.ExtremePricingThreshold,
		BatchAbuse:     cfg.BatchAbuseThreshold,
		VolumeSpike:    cfg.VolumeSpikeThreshold,
		GeoBaseline:    cfg.GeoExpansionBaseline,
		PayerTargeting: cfg.PayerTargetingThreshold,
	}
}

// WeightsFromConfig builds scoring weights from the application configuration
func WeightsFromConfig(cfg config.RiskConfig) Weights {
	return Weights{
		HighVolume:     cfg.HighVolumeWeight,
		ExtremePricing: cfg.ExtremePricingWeight,
		BatchAbuse:     cfg.BatchAbuseWeight,
		VolumeSpike:    cfg.VolumeSpikeWeight,
		GeoExpansion:   cfg.GeoExpansionWeight,
		PayerTargeting: cfg.PayerTargetingWeight,
	}
}
