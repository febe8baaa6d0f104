package models

import "strings"

// Severity is the normalized severity of a finding.
type Severity string

// Severity levels accepted by the findings schema.
const (
	SeverityInformational Severity = "INFORMATIONAL"
	SeverityLow           Severity = "LOW"
	SeverityMedium        Severity = "MEDIUM"
	SeverityHigh          Severity = "HIGH"
	SeverityCritical      Severity = "CRITICAL"
)

// DefaultSeverity is assigned when a scanner reports no severity, or one we
// don't recognize.
const DefaultSeverity = SeverityInformational

// ValidSeverities returns all valid severity levels for validation.
func ValidSeverities() []Severity {
	return []Severity{
		SeverityInformational,
		SeverityLow,
		SeverityMedium,
		SeverityHigh,
		SeverityCritical,
	}
}

// IsValid checks if a severity level is part of the enumeration.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInformational, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s Severity) String() string {
	return string(s)
}

// NormalizeSeverity maps scanner severity spellings onto the enumeration.
// The second return value is false when the input is empty or unrecognized.
func NormalizeSeverity(severity string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "critical", "very-high", "very high", "veryhigh":
		return SeverityCritical, true
	case "high":
		return SeverityHigh, true
	case "medium", "moderate":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	case "info", "informational", "negligible", "none":
		return SeverityInformational, true
	default:
		return "", false
	}
}

// ParseSeverity is NormalizeSeverity with fallback to def.
func ParseSeverity(severity string, def Severity) Severity {
	if s, ok := NormalizeSeverity(severity); ok {
		return s
	}
	return def
}
