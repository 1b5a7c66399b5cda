// This file adds a lightweight linter/validator for Config values. It
// performs static checks over a decoded Config and returns a list of
// issues (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "runtime.workers"); Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Config. It does not mutate the
// config; callers decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	if c.NumFiles <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "num_files",
			Message:  "num_files must be > 0",
		})
	}
	if c.RecordsPerFile <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "records_per_file",
			Message:  "records_per_file must be > 0",
		})
	}
	for path, dir := range map[string]string{
		"raw_data_dir":       c.RawDir,
		"processed_data_dir": c.ProcessedDir,
		"curated_data_dir":   c.CuratedDir,
	} {
		if strings.TrimSpace(dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  path + " must not be empty",
			})
		}
	}

	switch c.Backend {
	case BackendMemory, BackendCluster:
	case "":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "backend",
			Message:  `backend is empty; defaulting to "memory"`,
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "backend",
			Message:  fmt.Sprintf("unknown backend %q (want %q or %q)", c.Backend, BackendMemory, BackendCluster),
		})
	}

	if c.Runtime.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "runtime.workers must be >= 0",
		})
	}
	if c.Runtime.Partitions < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.partitions",
			Message:  "runtime.partitions must be >= 0",
		})
	}
	if c.Backend == BackendMemory && (c.Runtime.Workers > 0 || c.Runtime.Partitions > 0) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime",
			Message:  "runtime settings are ignored by the memory backend",
		})
	}

	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
