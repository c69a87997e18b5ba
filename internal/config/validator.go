package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rohankatakam/crisk-annotate/internal/errors"
	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}

	return sb.String()
}

// Validate checks struct tags and the cross-field rules tags cannot express
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	validate := validator.New()
	validate.RegisterValidation("highlight_mode", validateHighlightMode)
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				result.AddError("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
		} else {
			result.AddError("%v", err)
		}
	}

	if c.Cache.Type == "redis" && c.Cache.Redis.Host == "" {
		result.AddError("Config.Cache.Redis.Host: required when cache type is redis")
	}
	if c.Cache.Type == "memory" && c.Cache.TTL == 0 {
		result.AddWarning("memory cache without TTL grows until the process exits")
	}
	if mode, _ := models.ParseHighlightingMode(c.Highlight.Mode); mode == models.ModeUnchecked && c.Highlight.Window == 0 && len(c.Highlight.IgnoreAuthors) == 0 && !c.Highlight.IgnoreSelf {
		result.AddWarning("unchecked mode with no window and no ignored authors marks every line")
	}

	return result
}

// validateHighlightMode accepts exactly what the --mode flag accepts
func validateHighlightMode(fl validator.FieldLevel) bool {
	_, err := models.ParseHighlightingMode(fl.Field().String())
	return err == nil
}

// MustValidate returns a config error when validation fails
func (c *Config) MustValidate() error {
	result := c.Validate()
	if result.HasErrors() {
		return errors.ConfigErrorf("%s", result.Error())
	}
	return nil
}
