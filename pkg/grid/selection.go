package grid

// State is the phase of the pointer-driven selection machine
type State int

const (
	// Idle has no active cell and no selection
	Idle State = iota
	// Dragging extends a day range from the anchor until the pointer is released
	Dragging
	// Selected holds a committed selection with no drag in progress
	Selected
	// Editing has the code picker open on the active cell
	Editing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Selected:
		return "selected"
	case Editing:
		return "editing"
	}
	return "unknown"
}

// Button identifies the pointer button of a press
type Button int

const (
	// ButtonPrimary is the main (usually left) button
	ButtonPrimary Button = iota
	// ButtonAuxiliary is the middle button or wheel
	ButtonAuxiliary
	// ButtonSecondary is the context-menu (usually right) button
	ButtonSecondary
)

// Selection tracks the active cell and the selected cells of one row.
// All selected days share a single employee; every transition keeps it so.
type Selection struct {
	state     State
	anchor    Cell
	active    Cell
	hasActive bool
	row       int
	days      []int
}

// State returns the current phase
func (s *Selection) State() State {
	return s.state
}

// Active returns the active cell, if any
func (s *Selection) Active() (Cell, bool) {
	return s.active, s.hasActive
}

// Len returns the number of selected cells
func (s *Selection) Len() int {
	return len(s.days)
}

// Cells returns the selected cells in selection order
func (s *Selection) Cells() []Cell {
	out := make([]Cell, len(s.days))
	for i, d := range s.days {
		out[i] = Cell{EmployeeID: s.row, Day: d}
	}
	return out
}

// Contains reports whether c is selected
func (s *Selection) Contains(c Cell) bool {
	if len(s.days) == 0 || c.EmployeeID != s.row {
		return false
	}
	return s.indexOf(c.Day) >= 0
}

// Targets returns the cells a batch apply writes to: the selection when it
// lies on the active row, otherwise the active cell alone.
func (s *Selection) Targets() []Cell {
	if !s.hasActive {
		return s.Cells()
	}
	if len(s.days) > 0 && s.row == s.active.EmployeeID {
		return s.Cells()
	}
	return []Cell{s.active}
}

// MouseDown handles a button press on a cell. multi is the ctrl/cmd modifier.
func (s *Selection) MouseDown(c Cell, b Button, multi bool) {
	if b != ButtonPrimary {
		return
	}
	if multi {
		s.togglePick(c)
		return
	}

	if s.Contains(c) {
		switch {
		case len(s.days) > 1:
			s.setActive(c)
			s.state = Selected
			return
		case s.hasActive && s.active == c:
			s.Clear()
			return
		}
	}

	s.row = c.EmployeeID
	s.days = []int{c.Day}
	s.anchor = c
	s.setActive(c)
	s.state = Dragging
}

// MouseEnter extends a drag to c. Cells of another row are ignored.
func (s *Selection) MouseEnter(c Cell) {
	if s.state != Dragging || c.EmployeeID != s.anchor.EmployeeID {
		return
	}
	lo, hi := s.anchor.Day, c.Day
	if lo > hi {
		lo, hi = hi, lo
	}
	days := make([]int, 0, hi-lo+1)
	for d := lo; d <= hi; d++ {
		days = append(days, d)
	}
	s.row = c.EmployeeID
	s.days = days
	s.setActive(c)
}

// MouseUp ends a drag anywhere in the document
func (s *Selection) MouseUp() {
	if s.state == Dragging {
		s.state = Selected
	}
}

// OutsideMouseDown handles a press outside every cell
func (s *Selection) OutsideMouseDown() {
	s.Clear()
}

// OpenPicker opens the code picker on the active cell. It fails while
// dragging or without an active cell.
func (s *Selection) OpenPicker() bool {
	if !s.hasActive || s.state == Dragging {
		return false
	}
	s.state = Editing
	return true
}

// ClosePicker dismisses the picker and keeps the selection
func (s *Selection) ClosePicker() {
	if s.state == Editing {
		s.state = Selected
	}
}

// Clear drops the selection and the active cell
func (s *Selection) Clear() {
	s.state = Idle
	s.hasActive = false
	s.active = Cell{}
	s.anchor = Cell{}
	s.row = 0
	s.days = nil
}

func (s *Selection) togglePick(c Cell) {
	switch {
	case len(s.days) > 0 && s.row != c.EmployeeID:
		s.row = c.EmployeeID
		s.days = []int{c.Day}
	case len(s.days) == 0:
		s.row = c.EmployeeID
		s.days = []int{c.Day}
	default:
		if i := s.indexOf(c.Day); i >= 0 {
			s.days = append(s.days[:i:i], s.days[i+1:]...)
		} else {
			s.days = append(s.days, c.Day)
		}
	}
	s.setActive(c)
	s.state = Selected
}

func (s *Selection) setActive(c Cell) {
	s.active = c
	s.hasActive = true
}

func (s *Selection) indexOf(day int) int {
	for i, d := range s.days {
		if d == day {
			return i
		}
	}
	return -1
}
