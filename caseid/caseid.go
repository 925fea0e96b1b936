// Package caseid mints, validates and parses ReportSafe case identifiers.
//
// A case ID looks like RS-HR-202401-AB12CD34: fixed prefix, optional
// two-letter incident type code, year+month, uniqueness suffix. The default
// generator derives the suffix from the clock plus cryptographically random
// bytes; uniqueness is probabilistic with a documented negligible collision
// rate. Sequential (Counter-backed) generation lives in sequential.go.
package caseid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Prefix is the fixed leading component of every case ID.
const Prefix = "RS"

// DefaultTypeCode is used when the incident type has no dedicated code.
const DefaultTypeCode = "GN"

var typeCodes = map[string]string{
	"harassment":    "HR",
	"threats":       "TH",
	"image_abuse":   "IA",
	"cyberstalking": "CS",
	"doxxing":       "DX",
	"deepfake":      "DF",
}

var typeNames = map[string]string{
	"HR": "Harassment",
	"TH": "Threats",
	"IA": "Image Abuse",
	"CS": "Cyberstalking",
	"DX": "Doxxing",
	"DF": "Deepfake",
	"GN": "General",
}

var pattern = regexp.MustCompile(`^RS-(?:[A-Z]{2}-)?\d{6}-[A-Z0-9]{6,8}$`)

// MalformedCaseIDError indicates an input that does not match the case ID
// grammar.
type MalformedCaseIDError struct {
	CaseID string
}

func (e *MalformedCaseIDError) Error() string {
	return fmt.Sprintf("malformed case id %q", e.CaseID)
}

// Components is the decomposition of a valid case ID.
type Components struct {
	FullID     string
	Prefix     string
	TypeCode   string
	TypeName   string
	Year       int
	Month      int
	UniqueCode string

	// ApproxCreatedAt is the first day of the embedded year/month. It is a
	// lossy approximation reconstructed from the ID alone; callers holding
	// the full record should use its submittedAt instead.
	ApproxCreatedAt time.Time
}

// TypeCode maps an incident type to its two-letter code. Unknown types fall
// back to the general code rather than failing.
func TypeCode(incidentType string) string {
	if code, ok := typeCodes[strings.ToLower(incidentType)]; ok {
		return code
	}
	return DefaultTypeCode
}

// Generator mints case IDs. The zero value is not usable; construct with New.
type Generator struct {
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New returns a random-suffix Generator.
func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate mints a case ID carrying the type code for incidentType. The
// suffix is the last four base36 digits of the current time in milliseconds
// plus two random bytes, matching an eight-character uniqueness group.
func (g *Generator) Generate(incidentType string) string {
	now := g.now()
	return fmt.Sprintf("%s-%s-%d%02d-%s%s",
		Prefix, TypeCode(incidentType), now.Year(), int(now.Month()), g.timeComponent(now), randomHex(2))
}

// GenerateUntyped mints a case ID without a type code group.
func (g *Generator) GenerateUntyped() string {
	now := g.now()
	return fmt.Sprintf("%s-%d%02d-%s%s",
		Prefix, now.Year(), int(now.Month()), g.timeComponent(now), randomHex(2))
}

// BatchGenerate returns count distinct case IDs, retrying internal
// duplicates until the set is full.
func (g *Generator) BatchGenerate(count int) []string {
	seen := make(map[string]bool, count)
	ids := make([]string, 0, count)
	for len(ids) < count {
		id := g.GenerateUntyped()
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (g *Generator) timeComponent(now time.Time) string {
	s := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(s) > 4 {
		s = s[len(s)-4:]
	}
	return s
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}

// Validate reports whether caseID matches the grammar.
func Validate(caseID string) bool {
	return pattern.MatchString(caseID)
}

// Parse decomposes caseID into its components. It fails with a
// *MalformedCaseIDError when the input does not match the grammar.
func Parse(caseID string) (*Components, error) {
	if !Validate(caseID) {
		return nil, &MalformedCaseIDError{CaseID: caseID}
	}

	parts := strings.Split(caseID, "-")
	typeCode := DefaultTypeCode
	yearMonth := parts[1]
	unique := parts[2]
	if len(parts) == 4 {
		typeCode = parts[1]
		yearMonth = parts[2]
		unique = parts[3]
	}

	year, _ := strconv.Atoi(yearMonth[:4])
	month, _ := strconv.Atoi(yearMonth[4:6])

	name, ok := typeNames[typeCode]
	if !ok {
		name = "Unknown"
	}

	return &Components{
		FullID:          caseID,
		Prefix:          parts[0],
		TypeCode:        typeCode,
		TypeName:        name,
		Year:            year,
		Month:           month,
		UniqueCode:      unique,
		ApproxCreatedAt: time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
	}, nil
}
