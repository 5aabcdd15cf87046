package display

import (
	"github.com/jmylchreest/toaster/internal/config"
)

// estimatedPopupHeight is used to stack popups that have not been allocated yet.
const estimatedPopupHeight = 64

// anchors are the screen edges a popup is attached to.
type anchors struct {
	top, bottom, left, right bool
}

// anchorsFor returns the edges a popup at pos is anchored to.
// Unknown positions fall back to bottom-right.
func anchorsFor(pos config.Position) anchors {
	switch pos {
	case config.PositionTopLeft:
		return anchors{top: true, left: true}
	case config.PositionTopRight:
		return anchors{top: true, right: true}
	case config.PositionTopCenter:
		return anchors{top: true}
	case config.PositionBottomLeft:
		return anchors{bottom: true, left: true}
	case config.PositionBottomCenter:
		return anchors{bottom: true}
	default:
		return anchors{bottom: true, right: true}
	}
}

// stackOffsets returns the vertical margin of each popup in a stack, measured from the
// anchored edge. The first popup sits at base; each following one clears the previous
// popup plus gap.
func stackOffsets(heights []int, base, gap int) []int {
	offsets := make([]int, len(heights))
	next := base
	for i, h := range heights {
		if h <= 0 {
			h = estimatedPopupHeight
		}
		offsets[i] = next
		next += h + gap
	}
	return offsets
}
