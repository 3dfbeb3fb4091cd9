package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeType distinguishes the two canonical definition kinds.
type NodeType string

const (
	NodeCPD NodeType = "CPD" // Canonical Product Definition
	NodeCCD NodeType = "CCD" // Canonical Concept Definition
)

// LinkType represents the declared relationship between two nodes.
// Only LinkUses and LinkInspiredBy are valid; anything else (including
// the explicitly forbidden "depends-on") is kept as-is and reported by
// the validation engine, never rejected at load time.
type LinkType string

const (
	LinkUses       LinkType = "uses"
	LinkInspiredBy LinkType = "inspired-by"
	LinkDependsOn  LinkType = "depends-on"
)

// Status maps a status field key to its value. Values are pointers so
// that an explicit JSON null stays distinguishable from an absent key:
// the two produce different validation findings.
type Status map[string]*string

// Value returns the string value for key, treating null as empty.
// The second return reports key presence.
func (s Status) Value(key string) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	return *v, true
}

// CPDOwnership holds the three ownership roles a product must declare.
type CPDOwnership struct {
	ProductOwner       string `json:"productOwner"`
	DeliveryOwner      string `json:"deliveryOwner"`
	TechnicalAuthority string `json:"technicalAuthority"`
}

// DecisionLevel records who decides what for a product.
type DecisionLevel struct {
	Implementation  string `json:"implementation"`
	ScopePriority   string `json:"scopePriority"`
	LifecycleGoNoGo string `json:"lifecycleGoNoGo"`
}

// CPDDetail is the product payload of a CPD node.
type CPDDetail struct {
	ProductName   string        `json:"productName"`
	WhatIs        string        `json:"whatIs"`
	WhatIsNot     []string      `json:"whatIsNot"`
	NeverImplicit string        `json:"neverImplicit"`
	Ownership     CPDOwnership  `json:"ownership"`
	DecisionLevel DecisionLevel `json:"decisionLevel"`
	Lifecycle     string        `json:"lifecycle"`
	Status        Status        `json:"status,omitempty"`
}

// CCDOwnership holds the stewardship roles of a concept.
type CCDOwnership struct {
	ConceptSteward         string `json:"conceptSteward"`
	ProductResponsibility  string `json:"productResponsibility"`
	EconomicResponsibility string `json:"economicResponsibility"`
}

// CCDDetail is the concept payload of a CCD node.
type CCDDetail struct {
	ConceptName       string       `json:"conceptName"`
	WhatIs            string       `json:"whatIs"`
	WhatIsNot         []string     `json:"whatIsNot"`
	NeverImplicit     string       `json:"neverImplicit"`
	Ownership         CCDOwnership `json:"ownership"`
	RelationshipRules []string     `json:"relationshipRules"`
	Maturity          string       `json:"maturity"`
	Status            Status       `json:"status,omitempty"`
}

// Node is a single CPD or CCD definition.
type Node struct {
	ID     string     `json:"id"`
	Type   NodeType   `json:"type"`
	Name   string     `json:"name"`
	CPD    *CPDDetail `json:"cpd,omitempty"`
	CCD    *CCDDetail `json:"ccd,omitempty"`
	Status Status     `json:"status,omitempty"` // legacy top-level location
}

// EffectiveStatus returns the node's status object with the documented
// precedence: the top-level status wins, the nested payload status is
// the fallback. A nil map means the node declares no status at all.
func (n *Node) EffectiveStatus() Status {
	if n.Status != nil {
		return n.Status
	}
	switch n.Type {
	case NodeCPD:
		if n.CPD != nil {
			return n.CPD.Status
		}
	case NodeCCD:
		if n.CCD != nil {
			return n.CCD.Status
		}
	}
	return nil
}

// Lifecycle returns the product lifecycle text, or "" for non-CPD nodes.
func (n *Node) Lifecycle() string {
	if n.CPD != nil {
		return n.CPD.Lifecycle
	}
	return ""
}

// Link connects two nodes by id. Links never own node identity; the
// rendering layer may project endpoints to live objects but the store
// keeps plain id pairs.
type Link struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   LinkType `json:"type"`
}

// UnmarshalJSON accepts both endpoint shapes the document may carry:
// a plain id string, or an embedded object with an "id" field left
// behind by a force-layout pass. Everything is normalized to id strings
// here, at the boundary.
func (l *Link) UnmarshalJSON(data []byte) error {
	var raw struct {
		Source json.RawMessage `json:"source"`
		Target json.RawMessage `json:"target"`
		Type   LinkType        `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	src, err := endpointID(raw.Source)
	if err != nil {
		return fmt.Errorf("link source: %w", err)
	}
	dst, err := endpointID(raw.Target)
	if err != nil {
		return fmt.Errorf("link target: %w", err)
	}

	l.Source = src
	l.Target = dst
	l.Type = raw.Type
	return nil
}

func endpointID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", err
		}
		return obj.ID, nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", err
	}
	return id, nil
}
