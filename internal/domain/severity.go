package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity is the patient-reported 1-10 scale. Zero means "not reported".
type Severity int

type SeverityBucket string

const (
	SeverityMild     SeverityBucket = "mild"
	SeverityModerate SeverityBucket = "moderate"
	SeveritySevere   SeverityBucket = "severe"
)

type SeverityFormat string

const (
	SeverityFormatBucket  SeverityFormat = "bucket"
	SeverityFormatNumeric SeverityFormat = "numeric"
)

func ParseSeverityFormat(raw string) (SeverityFormat, error) {
	switch format := SeverityFormat(strings.ToLower(strings.TrimSpace(raw))); format {
	case SeverityFormatBucket, SeverityFormatNumeric:
		return format, nil
	case "":
		return SeverityFormatBucket, nil
	default:
		return "", fmt.Errorf("unsupported severity format %q", raw)
	}
}

// ParseSeverity accepts a number (1-10) or a bucket name; buckets map to their midpoint.
func ParseSeverity(raw string) (Severity, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return 0, nil
	}

	switch SeverityBucket(trimmed) {
	case SeverityMild:
		return 2, nil
	case SeverityModerate:
		return 5, nil
	case SeveritySevere:
		return 8, nil
	}

	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeverity, raw)
	}

	severity := Severity(n)
	if err := severity.Validate(); err != nil {
		return 0, err
	}
	return severity, nil
}

func (s Severity) Validate() error {
	if s == 0 {
		return nil
	}
	if s < 1 || s > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidSeverity, int(s))
	}
	return nil
}

func (s Severity) Bucket() SeverityBucket {
	switch {
	case s <= 0:
		return ""
	case s <= 3:
		return SeverityMild
	case s <= 6:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// Label is the title-cased bucket shown next to predictions.
func (s Severity) Label() string {
	switch s.Bucket() {
	case SeverityMild:
		return "Mild"
	case SeverityModerate:
		return "Moderate"
	case SeveritySevere:
		return "Severe"
	default:
		return "Unknown"
	}
}

// Wire renders the severity the way the backend expects for the given format.
func (s Severity) Wire(format SeverityFormat) string {
	if s == 0 {
		return ""
	}
	if format == SeverityFormatNumeric {
		return strconv.Itoa(int(s))
	}
	return string(s.Bucket())
}
