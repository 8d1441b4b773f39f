package combo

// Tracker records which keys are currently held down.
// It is not safe for concurrent use; a single goroutine (the hook thread)
// feeds it events in the order they were observed.
type Tracker struct {
	pressed map[Key]struct{}
}

// NewTracker creates an empty key state tracker
func NewTracker() *Tracker {
	return &Tracker{pressed: make(map[Key]struct{}, 8)}
}

// KeyDown marks k as pressed. Auto-repeat downs re-assert the same state.
func (t *Tracker) KeyDown(k Key) {
	t.pressed[k] = struct{}{}
}

// KeyUp marks k as released
func (t *Tracker) KeyUp(k Key) {
	delete(t.pressed, k)
}

// IsPressed reports whether k is held. Keys never seen are not pressed.
func (t *Tracker) IsPressed(k Key) bool {
	_, ok := t.pressed[k]
	return ok
}

// Pressed returns the number of keys currently held
func (t *Tracker) Pressed() int {
	return len(t.pressed)
}

// Reset forgets every held key
func (t *Tracker) Reset() {
	clear(t.pressed)
}
