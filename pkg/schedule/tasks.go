// Package schedule derives review tasks from the graph, selects the
// most overdue slice of them, scores products for attention, and
// computes completion streaks. Everything here is pure: state comes in
// through lookup functions so the package stays storage-agnostic.
package schedule

import (
	"fmt"

	"github.com/canonmap/canonmap/pkg/graph"
)

// Task is one field-review unit: node x required status field. IDs
// are stable across runs because completion history is keyed by them.
type Task struct {
	ID       string         `json:"id"`
	NodeID   string         `json:"nodeId"`
	NodeName string         `json:"nodeName"`
	FieldKey string         `json:"fieldKey"`
	Label    string         `json:"label"`
	NodeType graph.NodeType `json:"nodeType"`
	Text     string         `json:"text"`
}

// TaskID returns the canonical id for a node/field pair.
func TaskID(nodeID, fieldKey string) string {
	return fmt.Sprintf("review_%s_%s", nodeID, fieldKey)
}

// DeriveTasks expands every node into one task per required status
// field, in document order. Nodes of unknown type contribute nothing.
func DeriveTasks(g *graph.Graph) []Task {
	if g == nil {
		return nil
	}
	var tasks []Task
	for _, node := range g.Nodes {
		fields := graph.RequiredFields(node.Type)
		for _, f := range fields {
			tasks = append(tasks, Task{
				ID:       TaskID(node.ID, f.Key),
				NodeID:   node.ID,
				NodeName: node.Name,
				FieldKey: f.Key,
				Label:    f.Label,
				NodeType: node.Type,
				Text:     fmt.Sprintf("%s: %s", node.Name, f.Label),
			})
		}
	}
	return tasks
}
