package grid

import "github.com/arnavshah/timesheet-grid-go/pkg/models"

// DefaultUndoDepth is the number of buffer snapshots kept for undo
const DefaultUndoDepth = 20

// History is a bounded stack of buffer snapshots. Pushing past the depth
// silently drops the oldest snapshot.
type History struct {
	depth int
	snaps [][]models.PendingChange
}

// Len returns the number of snapshots held
func (h *History) Len() int {
	return len(h.snaps)
}

// Depth returns the bound on the number of snapshots
func (h *History) Depth() int {
	if h.depth <= 0 {
		return DefaultUndoDepth
	}
	return h.depth
}

func (h *History) push(snapshot []models.PendingChange) {
	if len(h.snaps) >= h.Depth() {
		n := len(h.snaps) - h.Depth() + 1
		h.snaps = append(h.snaps[:0:0], h.snaps[n:]...)
	}
	h.snaps = append(h.snaps, snapshot)
}

func (h *History) pop() ([]models.PendingChange, bool) {
	if len(h.snaps) == 0 {
		return nil, false
	}
	last := h.snaps[len(h.snaps)-1]
	h.snaps = h.snaps[:len(h.snaps)-1]
	return last, true
}

func (h *History) reset() {
	h.snaps = nil
}
