package graph

import (
	"sort"
	"strings"
	"unicode"
)

// Field is a required status field: stable key plus human label. The
// labels appear verbatim in validation messages, which in turn are the
// acknowledgement keys, so they must not drift.
type Field struct {
	Key   string
	Label string
}

// CPDStatusFields are the six maturity signals every product declares.
var CPDStatusFields = []Field{
	{Key: "customerResearchData", Label: "Customer Research Data"},
	{Key: "valuePropositionClarity", Label: "Value Proposition Clarity"},
	{Key: "pricingEconomicModel", Label: "Pricing / Economic Model"},
	{Key: "reliabilitySLO", Label: "Reliability SLO"},
	{Key: "securityRiskPosture", Label: "Security Risk Posture"},
	{Key: "operationalOwnership", Label: "Operational Ownership"},
}

// CCDStatusFields are the six maturity signals every concept declares.
var CCDStatusFields = []Field{
	{Key: "userAudienceEvidence", Label: "User Audience Evidence"},
	{Key: "problemDefinitionClarity", Label: "Problem Definition Clarity"},
	{Key: "adoptionEvidence", Label: "Adoption Evidence"},
	{Key: "productizationEligibility", Label: "Productization Eligibility"},
	{Key: "ownershipStatus", Label: "Ownership Status"},
	{Key: "standardizationRisk", Label: "Standardization Risk"},
}

// RequiredFields returns the field set for a node type.
func RequiredFields(t NodeType) []Field {
	if t == NodeCPD {
		return CPDStatusFields
	}
	return CCDStatusFields
}

var labelByKey = func() map[string]string {
	m := make(map[string]string, len(CPDStatusFields)+len(CCDStatusFields))
	for _, f := range CPDStatusFields {
		m[f.Key] = f.Label
	}
	for _, f := range CCDStatusFields {
		m[f.Key] = f.Label
	}
	return m
}()

// Humanize maps a status key to its display label. Unknown keys get a
// best-effort camelCase split with a capitalized first word.
func Humanize(key string) string {
	if label, ok := labelByKey[key]; ok {
		return label
	}
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte(' ')
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Sentinel classifies a status value. Sentinels compare
// case-insensitively; anything else is explicit free text.
type Sentinel int

const (
	SentinelNone Sentinel = iota // consciously absent
	SentinelTBD                  // decision pending
	SentinelNA                   // structurally inapplicable (N/A prefix)
	SentinelExplicit
)

// ClassifyStatus returns the sentinel kind of a status value.
func ClassifyStatus(value string) Sentinel {
	v := strings.ToUpper(value)
	switch {
	case v == "NONE":
		return SentinelNone
	case v == "TBD":
		return SentinelTBD
	case strings.HasPrefix(v, "N/A"):
		return SentinelNA
	default:
		return SentinelExplicit
	}
}

// OrderedKeys returns the status keys in a stable order: canonical
// field keys first, then any extras sorted. Go map iteration is
// randomized; findings and pick reasons must not be.
func (s Status) OrderedKeys() []string {
	seen := make(map[string]bool, len(s))
	var keys []string
	for _, f := range append(append([]Field{}, CPDStatusFields...), CCDStatusFields...) {
		if _, ok := s[f.Key]; ok && !seen[f.Key] {
			keys = append(keys, f.Key)
			seen[f.Key] = true
		}
	}
	var rest []string
	for k := range s {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
