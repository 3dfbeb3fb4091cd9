package routine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/canonmap/canonmap/pkg/graph"
)

// VacationWindowDays is how far ahead of a configured vacation date
// the hardening check activates.
const VacationWindowDays = 14

// VacationCheckActive reports whether now falls inside the pre-vacation
// window: from 14 days before the configured date up to the date
// itself. An empty or unparseable date disables the check.
func VacationCheckActive(vacationStart string, now time.Time) bool {
	if vacationStart == "" {
		return false
	}
	start, err := time.ParseInLocation("2006-01-02", vacationStart, now.Location())
	if err != nil {
		return false
	}
	days := int(math.Ceil(start.Sub(now).Hours() / 24))
	return days >= 0 && days <= VacationWindowDays
}

// HardeningGaps lists the CPDs whose operational ownership is still
// NONE, the ones a pre-vacation check must flag. Ordering follows the
// document.
func HardeningGaps(g *graph.Graph) []string {
	var gaps []string
	for _, node := range g.CPDs() {
		v, _ := node.EffectiveStatus().Value("operationalOwnership")
		if strings.ToUpper(v) == "NONE" {
			gaps = append(gaps, fmt.Sprintf("CPD %q has Operational Ownership = NONE", node.Name))
		}
	}
	return gaps
}
