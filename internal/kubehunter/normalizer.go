package kubehunter

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"io"
	"net"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/joshsymonds/huntparse/internal/models"
)

// ScannerName identifies kube-hunter in logs and errors.
const ScannerName = "kube-hunter"

// Defaults for entries that omit fields.
const (
	DefaultName           = "Unnamed Vulnerability"
	DefaultCategory       = "Uncategorized"
	DefaultLocationScheme = "tcp"
)

var hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9.-]*[A-Za-z0-9])?$`)

// Option configures a Parser.
type Option func(*settings)

type settings struct {
	overrides       map[string]models.Severity
	defaultSeverity models.Severity
	locationScheme  string
}

// WithSeverityOverrides replaces the severity of findings whose kube-hunter
// vulnerability ID (e.g. KHV002) is a key of overrides. Invalid severities
// are ignored.
func WithSeverityOverrides(overrides map[string]models.Severity) Option {
	return func(s *settings) {
		for vid, sev := range overrides {
			if sev.IsValid() {
				s.overrides[strings.ToUpper(vid)] = sev
			}
		}
	}
}

// WithDefaultSeverity sets the severity used for entries with a missing or
// unrecognized severity. Invalid values leave the default unchanged.
func WithDefaultSeverity(sev models.Severity) Option {
	return func(s *settings) {
		if sev.IsValid() {
			s.defaultSeverity = sev
		}
	}
}

// WithLocationScheme sets the URI scheme prefixed to host[:port] locations.
// An empty scheme leaves locations untouched.
func WithLocationScheme(scheme string) Option {
	return func(s *settings) {
		s.locationScheme = strings.TrimSuffix(strings.ToLower(scheme), "://")
	}
}

// Parser turns kube-hunter reports into findings. It holds no mutable state
// and is safe for concurrent use.
type Parser struct {
	settings settings
}

// NewParser creates a parser with the given options applied over defaults.
func NewParser(opts ...Option) *Parser {
	s := settings{
		overrides:       make(map[string]models.Severity),
		defaultSeverity: models.DefaultSeverity,
		locationScheme:  DefaultLocationScheme,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Parser{settings: s}
}

// Name returns the scanner this parser handles.
func (p *Parser) Name() string {
	return ScannerName
}

// Normalize is a convenience wrapper around NewParser(opts...).Normalize.
func Normalize(input any, opts ...Option) ([]models.Finding, error) {
	return NewParser(opts...).Normalize(input)
}

// Normalize converts a raw report into findings, preserving the order of the
// report's vulnerabilities. input may be serialized JSON ([]byte, string,
// encoding/json.RawMessage, io.Reader) or an already-decoded document
// (map[string]any, Report, *Report). An absent or empty report yields an
// empty, non-nil slice. The input is never modified.
func (p *Parser) Normalize(input any) ([]models.Finding, error) {
	report, err := Decode(input)
	if err != nil {
		return nil, err
	}

	findings := make([]models.Finding, 0, len(report.Vulnerabilities))
	for i, vuln := range report.Vulnerabilities {
		findings = append(findings, p.finding(i, vuln))
	}
	return findings, nil
}

// Decode reads a raw report into a fresh Report. The result shares no memory
// with input.
func Decode(input any) (*Report, error) {
	switch v := input.(type) {
	case nil:
		return &Report{}, nil
	case []byte:
		return decodeText(InputText, v)
	case string:
		return decodeText(InputText, []byte(v))
	case stdjson.RawMessage:
		return decodeText(InputText, v)
	case io.Reader:
		if isNilPointer(v) {
			return &Report{}, nil
		}
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, newDecodeError(InputReader, fmt.Errorf("reading report: %w", err))
		}
		return decodeText(InputReader, data)
	case map[string]any, Report, *Report:
		if r, ok := v.(*Report); ok && r == nil {
			return &Report{}, nil
		}
		if m, ok := v.(map[string]any); ok && m == nil {
			return &Report{}, nil
		}
		data, err := codec.Marshal(v)
		if err != nil {
			return nil, newDecodeError(InputDocument, fmt.Errorf("encoding document: %w", err))
		}
		return decodeText(InputDocument, data)
	default:
		return nil, newDecodeError(InputDocument, fmt.Errorf("%w: %T", ErrUnsupportedInput, input))
	}
}

func decodeText(kind InputKind, data []byte) (*Report, error) {
	report := &Report{}
	if len(bytes.TrimSpace(data)) == 0 {
		return report, nil
	}
	if err := codec.Unmarshal(data, report); err != nil {
		return nil, newDecodeError(kind, err)
	}
	for i, vuln := range report.Vulnerabilities {
		if vuln == nil {
			return nil, newDecodeError(kind, fmt.Errorf("vulnerabilities[%d]: entry is null", i))
		}
	}
	return report, nil
}

func (p *Parser) finding(index int, v *Vulnerability) models.Finding {
	name := canonical(v.Name)
	if name == "" {
		name = canonical(v.VID)
	}
	if name == "" {
		name = DefaultName
	}

	category := canonical(v.Category)
	if category == "" {
		category = DefaultCategory
	}

	description := canonical(v.Description)
	location := formatLocation(canonical(v.Location), p.settings.locationScheme)

	return models.Finding{
		ID:          models.GenerateFindingID(strconv.Itoa(index), v.VID, name, category, location, description),
		Name:        name,
		Category:    category,
		Description: description,
		Location:    location,
		OSILayer:    models.OSILayerNetwork,
		Severity:    p.severity(v),
		Attributes:  attributes(v),
	}
}

func (p *Parser) severity(v *Vulnerability) models.Severity {
	if sev, ok := p.settings.overrides[strings.ToUpper(v.VID)]; ok {
		return sev
	}
	return models.ParseSeverity(v.Severity, p.settings.defaultSeverity)
}

// attributes builds the pass-through map. Extra keys come first so modeled
// keys win on collision.
func attributes(v *Vulnerability) map[string]any {
	attrs := make(map[string]any, len(v.Extra)+5)
	for k, val := range v.Extra {
		attrs[k] = val
	}

	set := func(key, val string) {
		if val != "" {
			attrs[key] = val
		}
	}
	set("vid", v.VID)
	set("hunter", v.Hunter)
	set("avd_reference", v.AVDReference)
	set("original_severity", v.Severity)
	if v.Evidence != nil {
		attrs["evidence"] = v.Evidence
	}
	return attrs
}

// canonical returns s in Unicode NFC so equal text hashes to equal IDs.
func canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// formatLocation prefixes host[:port] locations with scheme. Free-text
// locations such as "Local to Pod (kube-hunter-abc)" are returned as is.
func formatLocation(loc, scheme string) string {
	if loc == "" || scheme == "" || strings.Contains(loc, "://") {
		return loc
	}
	authority, ok := hostAuthority(loc)
	if !ok {
		return loc
	}
	return scheme + "://" + authority
}

// hostAuthority returns s as a URI authority, bracketing IPv6 literals.
// It reports false when s is not a host or host:port.
func hostAuthority(s string) (string, bool) {
	if host, port, err := net.SplitHostPort(s); err == nil {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return "", false
		}
		if net.ParseIP(host) == nil && !isHostname(host) {
			return "", false
		}
		return net.JoinHostPort(host, port), true
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		if ip := net.ParseIP(s[1 : len(s)-1]); ip != nil && strings.Contains(s, ":") {
			return s, true
		}
		return "", false
	}
	if ip := net.ParseIP(s); ip != nil {
		if strings.Contains(s, ":") {
			return "[" + s + "]", true
		}
		return s, true
	}
	if isHostname(s) {
		return s, true
	}
	return "", false
}

// isHostname requires at least one letter so bare ports and partial IPs
// like "10255" or "10.96.0" are not mistaken for hosts.
func isHostname(s string) bool {
	return hostnamePattern.MatchString(s) && strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
