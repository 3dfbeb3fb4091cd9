package template

import (
	"testing"

	"github.com/canonmap/canonmap/pkg/graph"
)

const cpdTemplate = "# CPD Template\n\n" +
	"**Name:** `<product name>`\n\n" +
	"## 2. What is this product?\n`<one paragraph>`\n\n" +
	"## 3. What is this product explicitly not?\n" +
	"- `<NOT 1>`\n" +
	"- `<NOT 2>`\n" +
	"- `<not a platform>`\n\n" +
	"## 4. Decision that must never be implicit\n> `<the decision>`\n\n" +
	"## 5. Ownership\n" +
	"- **Product Owner:** `<name>`\n" +
	"- **Delivery Owner:** `<name>`\n" +
	"- **Technical Authority:** `<name>`\n\n" +
	"## 7. Lifecycle\n`<Incubation|Growth|Mature|Sunset>`\n"

func TestParseTemplate(t *testing.T) {
	f, err := Parse(cpdTemplate, graph.NodeCPD)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Type != graph.NodeCPD {
		t.Errorf("type = %v", f.Type)
	}
	// Numbered filler items are dropped; real placeholders survive.
	if len(f.WhatIsNot) != 1 || f.WhatIsNot[0] != "not a platform" {
		t.Errorf("whatIsNot = %v", f.WhatIsNot)
	}
	if f.Status["customerResearchData"] != "NONE" || f.Status["valuePropositionClarity"] != "TBD" {
		t.Errorf("status defaults = %v", f.Status)
	}
	if f.Implementation != "TEAM" || f.ScopePriority != "OWNER" || f.LifecycleGoNoGo != "EXPLICIT_ONLY" {
		t.Errorf("decision defaults = %+v", f)
	}
}

func TestParseRejectsNonTemplate(t *testing.T) {
	if _, err := Parse("# Just a readme\n", graph.NodeCPD); err == nil {
		t.Fatal("expected error for document without placeholders")
	}
}

func TestFieldsOrDefaultFallsBackSilently(t *testing.T) {
	for _, md := range []string{"", "# broken\n"} {
		f := FieldsOrDefault(md, graph.NodeCCD)
		if f == nil {
			t.Fatalf("FieldsOrDefault(%q) returned nil", md)
		}
		if f.Status["productizationEligibility"] != "NOT ELIGIBLE" {
			t.Errorf("ccd defaults = %v", f.Status)
		}
		if f.Status["standardizationRisk"] != "HIGH" {
			t.Errorf("ccd defaults = %v", f.Status)
		}
	}
}

func TestNodeID(t *testing.T) {
	cases := []struct {
		typ  graph.NodeType
		name string
		want string
	}{
		{graph.NodeCPD, "Billing Engine", "cpd-billing-engine"},
		{graph.NodeCCD, "Usage  Metering!", "ccd-usage-metering"},
		{graph.NodeCPD, "APIs & SDKs 2.0", "cpd-apis-sdks-2-0"},
		{graph.NodeCPD, "", "cpd"},
	}
	for _, c := range cases {
		if got := NodeID(c.typ, c.name); got != c.want {
			t.Errorf("NodeID(%v, %q) = %q, want %q", c.typ, c.name, got, c.want)
		}
	}
}

func TestBuildCPDNode(t *testing.T) {
	f := DefaultFields(graph.NodeCPD)
	f.Name = "  Billing Engine  "
	f.WhatIs = "Meters and invoices usage."
	f.WhatIsNot = []string{"a general ledger"}
	f.NeverImplicit = "Price changes"
	f.ProductOwner = "ana"
	f.DeliveryOwner = "kim"
	f.TechnicalAuthority = "lee"
	f.Lifecycle = "Growth"
	f.Status["reliabilitySLO"] = "99.9%"
	f.Status["customerResearchData"] = "" // collapses to NONE

	n := f.BuildNode()
	if n.ID != "cpd-billing-engine" || n.Name != "Billing Engine" {
		t.Errorf("node = %+v", n)
	}
	if n.CPD == nil || n.CCD != nil {
		t.Fatalf("payload wrong: %+v", n)
	}
	if n.CPD.ProductName != "Billing Engine" || n.CPD.Lifecycle != "Growth" {
		t.Errorf("cpd = %+v", n.CPD)
	}
	if n.CPD.DecisionLevel.LifecycleGoNoGo != "EXPLICIT_ONLY" {
		t.Errorf("decision level = %+v", n.CPD.DecisionLevel)
	}
	if v, _ := n.CPD.Status.Value("reliabilitySLO"); v != "99.9%" {
		t.Errorf("status = %v", n.CPD.Status)
	}
	if v, _ := n.CPD.Status.Value("customerResearchData"); v != "NONE" {
		t.Errorf("empty status value should collapse to NONE, got %q", v)
	}
}

func TestBuildCCDNode(t *testing.T) {
	f := DefaultFields(graph.NodeCCD)
	f.Name = "Usage Metering"
	f.ConceptSteward = "" // defaults to TBD
	f.Maturity = "Emerging"

	n := f.BuildNode()
	if n.ID != "ccd-usage-metering" || n.CCD == nil {
		t.Fatalf("node = %+v", n)
	}
	if n.CCD.Ownership.ConceptSteward != "TBD" {
		t.Errorf("steward = %q", n.CCD.Ownership.ConceptSteward)
	}
	if n.CCD.Ownership.ProductResponsibility != "NONE" || n.CCD.Ownership.EconomicResponsibility != "NONE" {
		t.Errorf("ownership = %+v", n.CCD.Ownership)
	}
	if len(n.CCD.RelationshipRules) != 4 {
		t.Errorf("relationship rules = %v", n.CCD.RelationshipRules)
	}
	if n.CCD.Maturity != "Emerging" {
		t.Errorf("maturity = %q", n.CCD.Maturity)
	}
}
