// Package models contains the normalized findings data structures.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OSILayerNetwork is the layer kube-hunter findings are observed at.
const OSILayerNetwork = "NETWORK"

// findingNamespace scopes generated finding IDs.
var findingNamespace = uuid.MustParse("3c4e8f2a-6b1d-5e7a-9f0c-2d8b4a6e1c57")

// Finding represents a normalized security finding.
type Finding struct {
	Attributes  map[string]any `json:"attributes"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Location    string         `json:"location,omitempty"`
	OSILayer    string         `json:"osi_layer,omitempty"`
	Severity    Severity       `json:"severity"`
}

// GenerateFindingID creates a stable, deterministic ID for a finding.
// Identical inputs always produce the same UUID (version 5).
func GenerateFindingID(parts ...string) string {
	return uuid.NewSHA1(findingNamespace, []byte(strings.Join(parts, "\x00"))).String()
}

// IsValid checks if a finding has all required fields.
func (f *Finding) IsValid() error {
	if f.ID == "" {
		return fmt.Errorf("finding missing required field: id")
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("finding missing required field: name")
	}
	if f.Category == "" {
		return fmt.Errorf("finding missing required field: category")
	}
	if f.Severity == "" {
		return fmt.Errorf("finding missing required field: severity")
	}
	if !f.Severity.IsValid() {
		return fmt.Errorf("finding has invalid severity: %q", f.Severity)
	}
	if f.Attributes == nil {
		return fmt.Errorf("finding missing required field: attributes")
	}
	return nil
}
