package schedule

import (
	"sort"
	"strings"

	"github.com/canonmap/canonmap/pkg/graph"
)

// Pick is the product most in need of a review, with the score that
// put it there and up to three supporting reasons.
type Pick struct {
	Node    *graph.Node `json:"node"`
	Score   int         `json:"score"`
	Reasons []string    `json:"reasons"`
}

const maxPickReasons = 3

// PickCPD scores every CPD by how unsettled its status is and returns
// the winner: +3 per TBD field, +2 per NONE field, +1 when the
// lifecycle mentions Growth or Incubation. Ties break by node id
// ascending. Returns nil when the graph has no CPDs.
func PickCPD(g *graph.Graph) *Pick {
	if g == nil {
		return nil
	}
	var scored []*Pick
	for _, node := range g.Nodes {
		if node.Type != graph.NodeCPD {
			continue
		}
		p := &Pick{Node: node, Reasons: []string{}}
		status := node.EffectiveStatus()
		for _, key := range status.OrderedKeys() {
			v, _ := status.Value(key)
			switch strings.ToUpper(v) {
			case "TBD":
				p.Score += 3
				p.Reasons = append(p.Reasons, key+"=TBD")
			case "NONE":
				p.Score += 2
				p.Reasons = append(p.Reasons, key+"=NONE")
			}
		}
		lc := node.Lifecycle()
		if strings.Contains(lc, "Growth") || strings.Contains(lc, "Incubation") {
			p.Score++
		}
		if len(p.Reasons) > maxPickReasons {
			p.Reasons = p.Reasons[:maxPickReasons]
		}
		scored = append(scored, p)
	}
	if len(scored) == 0 {
		return nil
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Node.ID < scored[j].Node.ID
	})
	return scored[0]
}
