// Package validate implements the NICPD rule set over a graph
// snapshot: no link type outside uses/inspired-by, no depends-on, no
// CPD-to-CPD inspiration, schema-exact status objects, and the risky
// maturity combinations that warrant a warning.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/canonmap/canonmap/pkg/graph"
)

// Result holds the findings of one validation run. Errors are
// must-fix violations of the governance model; warnings are
// should-review signals. Both are human-readable strings: the texts
// are also the acknowledgement keys, so they are stable by contract.
type Result struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Clean reports whether the run found nothing at all.
func (r *Result) Clean() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

var allowedLinkTypes = map[graph.LinkType]bool{
	graph.LinkUses:       true,
	graph.LinkInspiredBy: true,
}

// productOnlyKeys must never appear on a CCD (error).
var productOnlyKeys = []string{"pricingEconomicModel", "reliabilitySLO", "operationalOwnership"}

// conceptOnlyKeys should not appear on a CPD (warning).
var conceptOnlyKeys = []string{"productizationEligibility", "standardizationRisk"}

// Run executes all rule groups over the graph and returns the ordered
// findings. Pure and deterministic: groups run A, B, C, D; inside a
// group, iteration follows the document order of nodes and links.
// Findings are never deduplicated; a link or node that trips two
// rules reports twice.
func Run(g *graph.Graph) *Result {
	res := &Result{Errors: []string{}, Warnings: []string{}}
	checkLinks(g, res)
	checkStatusSchema(g, res)
	checkCategoryMisuse(g, res)
	checkRiskyCombinations(g, res)
	return res
}

// checkLinks is rule group A: link integrity under the NICPD
// convention.
func checkLinks(g *graph.Graph, res *Result) {
	for _, l := range g.Links {
		s := g.NodeByID(l.Source)
		t := g.NodeByID(l.Target)

		if s == nil || t == nil {
			raw, _ := json.Marshal(l)
			res.Errors = append(res.Errors, fmt.Sprintf("Fix link: references unknown node %s", raw))
			continue
		}

		if !allowedLinkTypes[l.Type] {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"Change link type from %q to \"uses\" or \"inspired-by\" for %s → %s", l.Type, s.Name, t.Name))
		}

		// depends-on gets its own message in addition to the
		// not-allowed one above: the prohibition is explicit.
		if l.Type == graph.LinkDependsOn {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"Remove \"depends-on\" link between %s and %s. Use \"uses\" for optional relationships instead.", s.Name, t.Name))
		}

		if s.Type == graph.NodeCPD && t.Type == graph.NodeCPD && l.Type != graph.LinkUses {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"Change link type to \"uses\" for %s → %s. CPDs can only have \"uses\" relationships with other CPDs.", s.Name, t.Name))
		}

		if l.Type == graph.LinkInspiredBy && s.Type == graph.NodeCPD && t.Type == graph.NodeCPD {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"Change link type from \"inspired-by\" to \"uses\" for %s → %s. CPDs cannot be inspired by other CPDs.", s.Name, t.Name))
		}
	}
}

// checkStatusSchema is rule group B: every node carries exactly its
// type's required status fields, all filled in.
func checkStatusSchema(g *graph.Graph, res *Result) {
	for _, node := range g.Nodes {
		status := node.EffectiveStatus()
		required := graph.RequiredFields(node.Type)

		if status == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Add status fields to %s %q", node.Type, node.Name))
			continue
		}

		var missing, empty []string
		for _, f := range required {
			v, present := status.Value(f.Key)
			if !present {
				missing = append(missing, graph.Humanize(f.Key))
			} else if v == "" {
				empty = append(empty, graph.Humanize(f.Key))
			}
		}
		if len(missing) > 0 {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"Set %s for %s %q", strings.Join(missing, ", "), node.Type, node.Name))
		}
		if len(empty) > 0 {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"Fill in %s for %s %q (currently empty)", strings.Join(empty, ", "), node.Type, node.Name))
		}

		requiredSet := make(map[string]bool, len(required))
		for _, f := range required {
			requiredSet[f.Key] = true
		}
		var extra []string
		for _, key := range status.OrderedKeys() {
			if !requiredSet[key] {
				extra = append(extra, graph.Humanize(key))
			}
		}
		if len(extra) > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"Remove %s from %s %q (not part of %s schema)", strings.Join(extra, ", "), node.Type, node.Name, node.Type))
		}
	}
}

// checkCategoryMisuse is rule group C: product-only fields on a CCD
// are errors, concept-only fields on a CPD are warnings.
func checkCategoryMisuse(g *graph.Graph, res *Result) {
	for _, node := range g.Nodes {
		status := node.EffectiveStatus()
		if status == nil {
			continue
		}

		if node.Type == graph.NodeCCD {
			for _, key := range productOnlyKeys {
				if _, present := status.Value(key); present {
					res.Errors = append(res.Errors, fmt.Sprintf(
						"Remove %q from CCD %q (product-only field)", graph.Humanize(key), node.Name))
				}
			}
		}

		if node.Type == graph.NodeCPD {
			for _, key := range conceptOnlyKeys {
				if _, present := status.Value(key); present {
					res.Warnings = append(res.Warnings, fmt.Sprintf(
						"Remove %q from CPD %q (concept-only field)", graph.Humanize(key), node.Name))
				}
			}
		}
	}
}

// checkRiskyCombinations is rule group D: combinations that are legal
// but premature. Warnings only.
func checkRiskyCombinations(g *graph.Graph, res *Result) {
	for _, node := range g.Nodes {
		if node.Type != graph.NodeCPD {
			continue
		}
		status := node.EffectiveStatus()

		slo := upperValue(status, "reliabilitySLO")
		ownership := upperValue(status, "operationalOwnership")
		if slo != "NONE" && slo != "" && (ownership == "NONE" || ownership == "TBD") {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"Define \"Operational Ownership\" for CPD %q before setting reliability promises", node.Name))
		}

		pricing := upperValue(status, "pricingEconomicModel")
		security := upperValue(status, "securityRiskPosture")
		if pricing != "NONE" && pricing != "" && pricing != "N/A" && (security == "NONE" || security == "TBD") {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"Define \"Security Risk Posture\" for CPD %q before setting pricing model", node.Name))
		}
	}

	for _, node := range g.Nodes {
		if node.Type != graph.NodeCCD {
			continue
		}
		status := node.EffectiveStatus()

		eligibility := upperValue(status, "productizationEligibility")
		ownership := upperValue(status, "ownershipStatus")
		if eligibility == "ELIGIBLE" && ownership == "NONE" {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"Assign \"Ownership Status\" to CCD %q since it's marked as productization-eligible", node.Name))
		}
	}
}

func upperValue(s graph.Status, key string) string {
	v, _ := s.Value(key)
	return strings.ToUpper(v)
}
