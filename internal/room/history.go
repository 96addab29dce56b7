package room

import "polyform-sync/internal/domain"

const DefaultHistoryLimit = 120

// History is a bounded undo/redo stack of whole-content snapshots.
type History struct {
	limit int
	undo  []domain.Content
	redo  []domain.Content
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Record saves previous as an undo step and clears the redo stack.
func (h *History) Record(previous domain.Content) {
	h.undo = pushBounded(h.undo, previous.Clone(), h.limit)
	h.redo = nil
}

// Undo pops the last snapshot. current becomes the next redo step.
func (h *History) Undo(current domain.Content) (domain.Content, bool) {
	if len(h.undo) == 0 {
		return domain.Content{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = pushBounded(h.redo, current.Clone(), h.limit)
	return prev, true
}

func (h *History) Redo(current domain.Content) (domain.Content, bool) {
	if len(h.redo) == 0 {
		return domain.Content{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = pushBounded(h.undo, current.Clone(), h.limit)
	return next, true
}

func (h *History) Counts() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

func pushBounded(stack []domain.Content, c domain.Content, limit int) []domain.Content {
	stack = append(stack, c)
	if len(stack) > limit {
		stack = append(stack[:0:0], stack[len(stack)-limit:]...)
	}
	return stack
}
