package domain

import "fmt"

// Mode controls what an entity's analysis pass is allowed to do.
type Mode string

const (
	// ModeOff disables all output for the entity.
	ModeOff Mode = "OFF"
	// ModeShadow computes and records recommendations without authorizing
	// any externally applied bid change.
	ModeShadow Mode = "SHADOW"
	// ModeApply additionally authorizes use of the multiplier to scale a bid.
	ModeApply Mode = "APPLY"
)

// EntityConfig is the per-entity configuration record. Created on first use
// with defaults, mutated only through explicit update, validated before
// every persist.
type EntityConfig struct {
	EntityID string
	Mode     Mode
	Enabled  bool

	MinMultiplier     float64
	MaxMultiplier     float64
	SignificanceLevel float64
	MinSampleSize     int

	AnalysisWindowDays    int
	MaxDailyLoss          float64
	RollbackThreshold     float64 // performance degradation threshold in (0,1)
	MaxConsecutiveBadDays int
	MaxStepDelta          float64 // gradual-change cap per analysis cycle
}

// DefaultConfig returns the configuration a new entity starts with.
// New entities start in SHADOW so nothing is applied before a human review.
func DefaultConfig(entityID string) *EntityConfig {
	return &EntityConfig{
		EntityID:              entityID,
		Mode:                  ModeShadow,
		Enabled:               true,
		MinMultiplier:         0.5,
		MaxMultiplier:         1.5,
		SignificanceLevel:     0.05,
		MinSampleSize:         30,
		AnalysisWindowDays:    30,
		MaxDailyLoss:          40000,
		RollbackThreshold:     0.3,
		MaxConsecutiveBadDays: 3,
		MaxStepDelta:          0.05,
	}
}

// ValidationResult is the structured outcome of config validation.
// Callers decide whether to accept, reject, or log-and-default.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks the configuration for internal consistency. It never
// panics; all problems are reported as messages.
func (c *EntityConfig) Validate() ValidationResult {
	var errs []string

	if c.EntityID == "" {
		errs = append(errs, "entity_id must not be empty")
	}
	switch c.Mode {
	case ModeOff, ModeShadow, ModeApply:
	default:
		errs = append(errs, fmt.Sprintf("mode %q is not one of OFF, SHADOW, APPLY", c.Mode))
	}
	if c.MinMultiplier <= 0 {
		errs = append(errs, fmt.Sprintf("min_multiplier %.4f must be positive", c.MinMultiplier))
	}
	if c.MinMultiplier >= c.MaxMultiplier {
		errs = append(errs, fmt.Sprintf("min_multiplier %.4f must be below max_multiplier %.4f",
			c.MinMultiplier, c.MaxMultiplier))
	}
	if c.SignificanceLevel <= 0 || c.SignificanceLevel >= 1 {
		errs = append(errs, fmt.Sprintf("significance_level %.4f must be in (0, 1)", c.SignificanceLevel))
	}
	if c.MinSampleSize < 1 {
		errs = append(errs, fmt.Sprintf("min_sample_size %d must be at least 1", c.MinSampleSize))
	}
	if c.AnalysisWindowDays < 1 {
		errs = append(errs, fmt.Sprintf("analysis_window_days %d must be at least 1", c.AnalysisWindowDays))
	}
	if c.MaxDailyLoss < 0 {
		errs = append(errs, fmt.Sprintf("max_daily_loss %.2f must not be negative", c.MaxDailyLoss))
	}
	if c.RollbackThreshold <= 0 || c.RollbackThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("rollback_threshold %.4f must be in (0, 1)", c.RollbackThreshold))
	}
	if c.MaxConsecutiveBadDays < 1 {
		errs = append(errs, fmt.Sprintf("max_consecutive_bad_days %d must be at least 1", c.MaxConsecutiveBadDays))
	}
	if c.MaxStepDelta <= 0 {
		errs = append(errs, fmt.Sprintf("max_step_delta %.4f must be positive", c.MaxStepDelta))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
