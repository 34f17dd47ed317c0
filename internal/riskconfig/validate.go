package riskconfig

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// weightTolerance bounds |sum(weights) - 1|
const weightTolerance = 0.01

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Violation is one failed constraint
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ConfigError lists every violated constraint. Evaluation must not proceed.
type ConfigError struct {
	Violations []Violation `json:"violations"`
}

func (e *ConfigError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid risk config: " + strings.Join(parts, "; ")
}

// Has reports whether field appears among the violations
func (e *ConfigError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Warning is a non-fatal configuration smell
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Default returns a Config populated from the default tags
func Default() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("riskconfig: bad default tag: %v", err))
	}
	return cfg
}

// Validate checks field bounds and cross-field rules and returns a
// *ConfigError carrying every violation, or nil.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &ConfigError{Violations: []Violation{{Field: "config", Message: "required"}}}
	}

	var violations []Violation

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ConfigError{Violations: []Violation{{Field: "config", Message: err.Error()}}}
		}
		for _, fe := range fieldErrs {
			violations = append(violations, Violation{
				Field:   fieldPath(fe),
				Message: describe(fe),
			})
		}
	}

	if err := validateWeightsSum(cfg.Weights); err != nil {
		violations = append(violations, Violation{Field: "weights", Message: err.Error()})
	}
	if cfg.CorrelationMediumLimit >= cfg.CorrelationHighLimit {
		violations = append(violations, Violation{
			Field:   "correlation_medium_limit",
			Message: fmt.Sprintf("must be below correlation_high_limit=%.2f", cfg.CorrelationHighLimit),
		})
	}

	if len(violations) > 0 {
		return &ConfigError{Violations: violations}
	}
	return nil
}

// Warn returns recommendations that do not block evaluation
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.UseKelly && cfg.KellyCap > cfg.MaxPositionSize {
		warnings = append(warnings, Warning{
			Code:    "KELLY_CAP_INERT",
			Message: fmt.Sprintf("kelly_cap=%.3f exceeds max_position_size=%.3f and never binds", cfg.KellyCap, cfg.MaxPositionSize),
		})
	}
	if cfg.MaxSectorExposure > cfg.MaxTotalExposure {
		warnings = append(warnings, Warning{
			Code:    "SECTOR_CAP_INERT",
			Message: "max_sector_exposure exceeds max_total_exposure",
		})
	}
	if cfg.MaxAssetExposure > cfg.MaxSectorExposure {
		warnings = append(warnings, Warning{
			Code:    "ASSET_CAP_ABOVE_SECTOR",
			Message: "max_asset_exposure exceeds max_sector_exposure",
		})
	}
	if cfg.MinSignalQuality < 0.5 {
		warnings = append(warnings, Warning{
			Code:    "LOW_QUALITY_FLOOR",
			Message: fmt.Sprintf("min_signal_quality=%.2f admits weak signals", cfg.MinSignalQuality),
		})
	}
	if cfg.ActivationThreshold >= cfg.Weights.Sum() {
		warnings = append(warnings, Warning{
			Code:    "UNREACHABLE_ACTIVATION",
			Message: "activation_threshold is not below the total weight; every decision will be HOLD",
		})
	}
	for _, s := range cfg.BlockedSymbols {
		if containsSymbol(cfg.AllowedSymbols, s) {
			warnings = append(warnings, Warning{
				Code:    "BLOCKED_AND_ALLOWED",
				Message: fmt.Sprintf("%s is in both lists; the block wins", s),
			})
		}
	}

	return warnings
}

func validateWeightsSum(w Weights) error {
	sum := w.Sum()
	if math.IsNaN(sum) || math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("must sum to 1 (±%.2f), got %.4f", weightTolerance, sum)
	}
	return nil
}

// fieldPath drops the root struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("must be less than %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
