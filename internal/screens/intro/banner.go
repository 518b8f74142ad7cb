package intro

import (
	"charm.land/lipgloss/v2"

	"github.com/candidus/assessor/internal/ui/theme"
)

const bannerArt = `
  █████╗ ███████╗███████╗███████╗███████╗███████╗ ██████╗ ██████╗
 ██╔══██╗██╔════╝██╔════╝██╔════╝██╔════╝██╔════╝██╔═══██╗██╔══██╗
 ███████║███████╗███████╗█████╗  ███████╗███████╗██║   ██║██████╔╝
 ██╔══██║╚════██║╚════██║██╔══╝  ╚════██║╚════██║██║   ██║██╔══██╗
 ██║  ██║███████║███████║███████╗███████║███████║╚██████╔╝██║  ██║
 ╚═╝  ╚═╝╚══════╝╚══════╝╚══════╝╚══════╝╚══════╝ ╚═════╝ ╚═╝  ╚═╝`

const bannerCompact = "A S S E S S O R"

// RenderBanner returns the ASSESSOR banner styled in the primary color.
// Terminals narrower than the art get the compact form.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < lipgloss.Width(bannerArt)+2 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
