package components

import (
	"fmt"
	"strings"

	"github.com/candidus/assessor/internal/delivery"
	"github.com/candidus/assessor/internal/ui/theme"
)

// Navigator renders one cell per item, styled by its status, with the
// current item bracketed.
type Navigator struct {
	Entries []delivery.NavEntry
	Current int
}

// View renders the navigator strip, wrapping to width.
func (n Navigator) View(width int) string {
	var (
		b    strings.Builder
		line int
	)
	for _, e := range n.Entries {
		label := fmt.Sprintf("%d:%s", e.Index+1, e.Code)
		if e.Index == n.Current {
			label = "[" + label + "]"
		}
		cell := theme.Status(e.Status).Render(label)
		w := len(label) + 2
		if line > 0 && line+w > width {
			b.WriteString("\n")
			line = 0
		}
		b.WriteString(cell)
		line += w
	}
	return b.String()
}
