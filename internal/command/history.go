package command

// DefaultUndoDepth bounds the undo stack.
const DefaultUndoDepth = 10

// History is a linear undo/redo stack. Pushing evicts the oldest entry when
// full and always clears redo.
type History struct {
	depth int
	undo  []Command
	redo  []Command
}

func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultUndoDepth
	}
	return &History{depth: depth}
}

// Push records an executed command.
func (h *History) Push(c Command) {
	if len(h.undo) == h.depth {
		h.undo = append(h.undo[:0:0], h.undo[1:]...)
	}
	h.undo = append(h.undo, c)
	h.redo = nil
}

// Undo reverts the newest command and moves it to the redo stack. A failed
// undo leaves both stacks unchanged.
func (h *History) Undo() (Command, error) {
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	c := h.undo[len(h.undo)-1]
	if err := c.Undo(); err != nil {
		return c, err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, c)
	return c, nil
}

// Redo re-applies the newest undone command. A command that cannot redo is
// dropped from the redo stack, so it does not block older entries.
func (h *History) Redo() (Command, error) {
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	c := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	if err := c.Redo(); err != nil {
		return c, err
	}
	h.undo = append(h.undo, c)
	return c, nil
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }
func (h *History) Len() int      { return len(h.undo) }
func (h *History) Depth() int    { return h.depth }
