// Package kubehunter converts kube-hunter JSON reports into normalized findings.
package kubehunter

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

// codec mirrors encoding/json semantics, including sorted map keys, but
// decodes numbers held in untyped fields as json.Number so evidence and
// pass-through attributes keep their exact value.
var codec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Report is the top-level kube-hunter JSON document.
// All fields are optional; a report without vulnerabilities is valid.
type Report struct {
	KBURL            string            `json:"kburl,omitempty"`
	Nodes            []Node            `json:"nodes,omitempty"`
	Services         []Service         `json:"services,omitempty"`
	Vulnerabilities  []*Vulnerability  `json:"vulnerabilities,omitempty"`
	HunterStatistics []HunterStatistic `json:"hunter_statistics,omitempty"`
}

// Node is a cluster node discovered during the hunt.
type Node struct {
	Type     string `json:"type"`
	Location string `json:"location"`
}

// Service is a Kubernetes-related service discovered on a node.
type Service struct {
	Service  string `json:"service"`
	Location string `json:"location"`
}

// HunterStatistic describes a single hunter that ran during the scan.
type HunterStatistic struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Vulnerabilities int    `json:"vulnerabilities"`
}

// Vulnerability is a single entry of the report's vulnerabilities list.
// Keys kube-hunter emits that are not modeled here are kept in Extra.
type Vulnerability struct {
	Evidence     any            `json:"evidence,omitempty"`
	Extra        map[string]any `json:"-"`
	Location     string         `json:"location,omitempty"`
	VID          string         `json:"vid,omitempty"`
	Category     string         `json:"category,omitempty"`
	Severity     string         `json:"severity,omitempty"`
	Name         string         `json:"vulnerability,omitempty"`
	Description  string         `json:"description,omitempty"`
	AVDReference string         `json:"avd_reference,omitempty"`
	Hunter       string         `json:"hunter,omitempty"`
}

var vulnerabilityKeys = []string{
	"evidence",
	"location",
	"vid",
	"category",
	"severity",
	"vulnerability",
	"description",
	"avd_reference",
	"hunter",
}

// vulnerabilityFields has the same layout as Vulnerability without its methods.
type vulnerabilityFields Vulnerability

// UnmarshalJSON decodes the modeled keys strictly and collects the rest into Extra.
func (v *Vulnerability) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var fields vulnerabilityFields
	if err := codec.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]any
	if err := codec.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range vulnerabilityKeys {
		delete(all, key)
	}
	if len(all) > 0 {
		fields.Extra = all
	}

	*v = Vulnerability(fields)
	return nil
}

// MarshalJSON writes the modeled keys and Extra back into a single object.
func (v Vulnerability) MarshalJSON() ([]byte, error) {
	raw, err := codec.Marshal(vulnerabilityFields(v))
	if err != nil {
		return nil, err
	}
	if len(v.Extra) == 0 {
		return raw, nil
	}

	merged := make(map[string]any, len(v.Extra)+len(vulnerabilityKeys))
	for k, val := range v.Extra {
		merged[k] = val
	}
	var known map[string]any
	if err := codec.Unmarshal(raw, &known); err != nil {
		return nil, err
	}
	for k, val := range known {
		merged[k] = val
	}
	return codec.Marshal(merged)
}

// Summary holds report-level counts.
type Summary struct {
	Nodes           int
	Services        int
	Vulnerabilities int
	Hunters         int
}

// Summarize counts what a report contains. A nil report has an empty summary.
func Summarize(r *Report) Summary {
	if r == nil {
		return Summary{}
	}
	return Summary{
		Nodes:           len(r.Nodes),
		Services:        len(r.Services),
		Vulnerabilities: len(r.Vulnerabilities),
		Hunters:         len(r.HunterStatistics),
	}
}
