package domain

import (
	"math"
	"time"
)

// System-wide SLA fallbacks, used whenever the contract and client carry no
// usable configuration.
const (
	DefaultSLADays           = 7
	DefaultWarningThreshold  = 70
	DefaultCriticalThreshold = 90
)

// SLAConfig is the resolved deadline configuration for one reclamation.
// It is derived per call (contract delay, then client delay, then the
// system default), never stored as its own row.
type SLAConfig struct {
	SLADays           int
	WarningThreshold  int // percent of elapsed time
	CriticalThreshold int // percent of elapsed time
}

// DefaultSLAConfig returns the system default configuration.
func DefaultSLAConfig() SLAConfig {
	return SLAConfig{
		SLADays:           DefaultSLADays,
		WarningThreshold:  DefaultWarningThreshold,
		CriticalThreshold: DefaultCriticalThreshold,
	}
}

// Sanitize returns a usable configuration and whether the input was valid.
// A non-positive slaDays or an inconsistent threshold pair is invalid
// configuration: the fallback is substituted field by field rather than
// failing the evaluation. Callers pass the operator-configured system
// default as the fallback; it must itself be valid.
func (c SLAConfig) Sanitize(fallback SLAConfig) (SLAConfig, bool) {
	valid := true

	if c.SLADays <= 0 {
		c.SLADays = fallback.SLADays
		valid = false
	}
	if c.WarningThreshold <= 0 || c.CriticalThreshold >= 100 ||
		c.WarningThreshold >= c.CriticalThreshold {
		c.WarningThreshold = fallback.WarningThreshold
		c.CriticalThreshold = fallback.CriticalThreshold
		valid = false
	}

	return c, valid
}

// Tier is the SLA risk classification of a reclamation. Values are ordered:
// a reclamation only ever moves up the scale as time passes.
type Tier int

const (
	TierOnTime Tier = iota
	TierAtRisk
	TierCritical
	TierOverdue
)

// String returns the wire representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierAtRisk:
		return "AT_RISK"
	case TierCritical:
		return "CRITICAL"
	case TierOverdue:
		return "OVERDUE"
	default:
		return "ON_TIME"
	}
}

// Assessment is the outcome of evaluating one reclamation against its
// deadline at a given instant.
type Assessment struct {
	Tier           Tier
	Deadline       time.Time
	RemainingHours int
	ElapsedRatio   float64
}

// Evaluate computes the SLA assessment for a reclamation created at
// createdAt, under cfg, as of now. cfg must already be sanitized.
func Evaluate(createdAt time.Time, cfg SLAConfig, now time.Time) Assessment {
	deadline := createdAt.Add(time.Duration(cfg.SLADays) * 24 * time.Hour)
	total := deadline.Sub(createdAt)

	ratio := now.Sub(createdAt).Seconds() / total.Seconds()
	if ratio < 0 {
		ratio = 0
	}

	tier := TierOnTime
	switch {
	case ratio >= 1.0:
		tier = TierOverdue
	case ratio >= float64(cfg.CriticalThreshold)/100:
		tier = TierCritical
	case ratio >= float64(cfg.WarningThreshold)/100:
		tier = TierAtRisk
	}

	remaining := int(math.Floor(deadline.Sub(now).Hours()))
	if remaining < 0 {
		remaining = 0
	}

	return Assessment{
		Tier:           tier,
		Deadline:       deadline,
		RemainingHours: remaining,
		ElapsedRatio:   ratio,
	}
}
