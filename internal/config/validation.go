package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"macstat/internal/device"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the names of the offending fields.
func (e ValidationErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, err := range e {
		out = append(out, err.Field)
	}
	return out
}

// ValidateConfig validates every section and returns ValidationErrors, or
// nil when the configuration is usable.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors
	errs = append(errs, validateWatch(&c.Watch)...)
	errs = append(errs, validateOutput(&c.Output)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateWatch(w *WatchConfig) ValidationErrors {
	var errs ValidationErrors

	if w.SliceMs < MinSliceMs || w.SliceMs > MaxSliceMs {
		errs = append(errs, *RangeError("watch.slice_ms", MinSliceMs, MaxSliceMs))
	}

	if len(w.QuitKeys) == 0 {
		errs = append(errs, ValidationError{
			Field:   "watch.quit_keys",
			Message: "at least one quit key is required",
		})
	}
	for i, k := range w.QuitKeys {
		k = strings.TrimSpace(k)
		if utf8.RuneCountInString(k) != 1 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watch.quit_keys[%d]", i),
				Message: fmt.Sprintf("quit key must be a single character, got %q", k),
			})
		}
	}

	if _, err := device.ParseClass(w.DefaultClass); err != nil {
		errs = append(errs, ValidationError{
			Field:   "watch.default_class",
			Message: err.Error(),
		})
	}

	for i, p := range w.IgnoreNames {
		if strings.Count(strings.Trim(p, "*"), "*") > 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watch.ignore_names[%d]", i),
				Message: fmt.Sprintf("wildcard only allowed at the start or end: %q", p),
			})
		}
	}

	return errs
}

func validateOutput(o *OutputConfig) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(o.TimeFormat) == "" {
		errs = append(errs, *RequiredFieldError("output.time_format"))
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size cannot be negative",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}

	return errs
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// RequiredFieldError creates a validation error for a missing field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max int) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %d and %d", min, max),
	}
}
