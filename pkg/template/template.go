// Package template turns the markdown authoring templates into node
// scaffolds. Template files are optional: a missing or unparseable
// template silently falls back to the built-in scaffold so authoring
// never blocks on repository layout.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/canonmap/canonmap/pkg/graph"
)

// Fields is the editable scaffold a template produces. Status holds
// the starting values per required field key.
type Fields struct {
	Type          graph.NodeType
	Name          string
	WhatIs        string
	WhatIsNot     []string
	NeverImplicit string

	// product only
	ProductOwner       string
	DeliveryOwner      string
	TechnicalAuthority string
	Implementation     string
	ScopePriority      string
	LifecycleGoNoGo    string
	Lifecycle          string

	// concept only
	ConceptSteward         string
	ProductResponsibility  string
	EconomicResponsibility string
	Maturity               string

	Status map[string]string
}

// DefaultStatus is the starting status per node type. A product opens
// with everything undecided; a concept additionally opens as not
// eligible and high-risk, forcing an explicit promotion later.
func DefaultStatus(t graph.NodeType) map[string]string {
	if t == graph.NodeCPD {
		return map[string]string{
			"customerResearchData":    "NONE",
			"valuePropositionClarity": "TBD",
			"pricingEconomicModel":    "TBD",
			"reliabilitySLO":          "NONE",
			"securityRiskPosture":     "TBD",
			"operationalOwnership":    "TBD",
		}
	}
	return map[string]string{
		"userAudienceEvidence":      "NONE",
		"problemDefinitionClarity":  "TBD",
		"adoptionEvidence":          "NONE",
		"productizationEligibility": "NOT ELIGIBLE",
		"ownershipStatus":           "NONE",
		"standardizationRisk":       "HIGH",
	}
}

// DefaultFields is the scaffold used when no template is available.
func DefaultFields(t graph.NodeType) *Fields {
	f := &Fields{Type: t, Status: DefaultStatus(t)}
	if t == graph.NodeCPD {
		f.Implementation = "TEAM"
		f.ScopePriority = "OWNER"
		f.LifecycleGoNoGo = "EXPLICIT_ONLY"
	} else {
		f.ConceptSteward = "TBD"
		f.ProductResponsibility = "NONE"
		f.EconomicResponsibility = "NONE"
	}
	return f
}

var (
	nameRe          = regexp.MustCompile("\\*\\*Name:\\*\\*\\s*`<([^>]+)>`")
	whatIsNotRe     = regexp.MustCompile("(?s)## 3\\. What is this (product|concept) explicitly not\\?\\s*((?:- `<[^>]+>`\\s*)+)")
	whatIsNotItemRe = regexp.MustCompile("- `<([^>]+)>`")
)

// Parse extracts the scaffold out of a markdown template. The template
// carries `<placeholder>` markers; their presence shapes the form and
// their text never reaches the node. Returns an error when the
// document does not look like a template at all.
func Parse(markdown string, t graph.NodeType) (*Fields, error) {
	if !nameRe.MatchString(markdown) {
		return nil, fmt.Errorf("no name placeholder: not a %s template", t)
	}
	f := DefaultFields(t)

	if m := whatIsNotRe.FindStringSubmatch(markdown); m != nil {
		for _, item := range whatIsNotItemRe.FindAllStringSubmatch(m[2], -1) {
			// The stock template ships numbered filler items.
			if item[1] == "NOT 1" || item[1] == "NOT 2" {
				continue
			}
			f.WhatIsNot = append(f.WhatIsNot, item[1])
		}
	}

	return f, nil
}

// FieldsOrDefault parses markdown when given, falling back to the
// built-in scaffold on any problem. The fallback is silent by design:
// a broken template must not block node creation.
func FieldsOrDefault(markdown string, t graph.NodeType) *Fields {
	if markdown == "" {
		return DefaultFields(t)
	}
	f, err := Parse(markdown, t)
	if err != nil {
		return DefaultFields(t)
	}
	return f
}

var (
	slugInvalidRe  = regexp.MustCompile("[^a-z0-9]+")
	slugCollapseRe = regexp.MustCompile("-+")
)

// NodeID derives the stable node id from the display name, prefixed
// by the lowercased node type.
func NodeID(t graph.NodeType, name string) string {
	slug := slugInvalidRe.ReplaceAllString(strings.ToLower(name), "-")
	slug = slugCollapseRe.ReplaceAllString(strings.ToLower(string(t))+"-"+slug, "-")
	return strings.Trim(slug, "-")
}

// relationshipRules is the fixed contract every concept carries.
var relationshipRules = []string{
	"Products may use ideas from this concept.",
	"Products must not be defined by this concept.",
	"This concept may be influenced by product reality.",
	"This concept must not replace product decisions.",
}

// BuildNode assembles a full node from filled-in fields. Empty status
// values collapse to NONE; a missing concept steward defaults to TBD.
func (f *Fields) BuildNode() *graph.Node {
	name := strings.TrimSpace(f.Name)
	status := graph.Status{}
	for _, field := range graph.RequiredFields(f.Type) {
		v := strings.TrimSpace(f.Status[field.Key])
		if v == "" {
			v = "NONE"
		}
		s := v
		status[field.Key] = &s
	}

	node := &graph.Node{
		ID:   NodeID(f.Type, name),
		Type: f.Type,
		Name: name,
	}

	if f.Type == graph.NodeCPD {
		node.CPD = &graph.CPDDetail{
			ProductName:   name,
			WhatIs:        strings.TrimSpace(f.WhatIs),
			WhatIsNot:     f.WhatIsNot,
			NeverImplicit: strings.TrimSpace(f.NeverImplicit),
			Ownership: graph.CPDOwnership{
				ProductOwner:       strings.TrimSpace(f.ProductOwner),
				DeliveryOwner:      strings.TrimSpace(f.DeliveryOwner),
				TechnicalAuthority: strings.TrimSpace(f.TechnicalAuthority),
			},
			DecisionLevel: graph.DecisionLevel{
				Implementation:  f.Implementation,
				ScopePriority:   f.ScopePriority,
				LifecycleGoNoGo: f.LifecycleGoNoGo,
			},
			Lifecycle: f.Lifecycle,
			Status:    status,
		}
		return node
	}

	steward := strings.TrimSpace(f.ConceptSteward)
	if steward == "" {
		steward = "TBD"
	}
	node.CCD = &graph.CCDDetail{
		ConceptName:   name,
		WhatIs:        strings.TrimSpace(f.WhatIs),
		WhatIsNot:     f.WhatIsNot,
		NeverImplicit: strings.TrimSpace(f.NeverImplicit),
		Ownership: graph.CCDOwnership{
			ConceptSteward:         steward,
			ProductResponsibility:  "NONE",
			EconomicResponsibility: "NONE",
		},
		RelationshipRules: relationshipRules,
		Maturity:          f.Maturity,
		Status:            status,
	}
	return node
}
