package combo

import (
	"sync"
	"testing"
)

func feed(d *Detector, events ...Event) []Transition {
	var out []Transition
	for _, ev := range events {
		if t := d.ProcessEvent(ev); t != NoTransition {
			out = append(out, t)
		}
	}
	return out
}

func TestCtrlShiftEngageRepeatRelease(t *testing.T) {
	d := NewDetector(Combination{Control: true, Shift: true})

	got := feed(d, Down(KeyLeftControl), Down(KeyLeftShift))
	if len(got) != 1 || got[0] != Engaged {
		t.Fatalf("expected exactly one engaged, got %v", got)
	}
	if !d.Matched() {
		t.Fatal("expected matched after both keys down")
	}

	// Auto-repeat while held must stay silent
	if got := feed(d, Down(KeyLeftControl), Down(KeyLeftControl), Down(KeyLeftShift)); len(got) != 0 {
		t.Fatalf("auto-repeat should not emit, got %v", got)
	}

	got = feed(d, Up(KeyLeftShift))
	if len(got) != 1 || got[0] != Disengaged {
		t.Fatalf("expected exactly one disengaged, got %v", got)
	}

	// Further releases while unmatched are silent
	if got := feed(d, Up(KeyLeftControl), Up(KeyLeftShift)); len(got) != 0 {
		t.Fatalf("releases while unmatched should not emit, got %v", got)
	}
}

func TestSelectedKeyOnly(t *testing.T) {
	d := NewDetector(Combination{Key: KeyF1})

	if got := feed(d, Down(KeyLeftControl), Down(KeyLeftShift), Down(KeyTab), Down(KeySpace)); len(got) != 0 {
		t.Fatalf("modifier events must be irrelevant, got %v", got)
	}
	if got := feed(d, Down(KeyF1)); len(got) != 1 || got[0] != Engaged {
		t.Fatalf("expected engaged on F1, got %v", got)
	}
	if got := feed(d, Up(KeyLeftControl), Up(KeySpace)); len(got) != 0 {
		t.Fatalf("modifier releases must be irrelevant, got %v", got)
	}
	if got := feed(d, Up(KeyF1)); len(got) != 1 || got[0] != Disengaged {
		t.Fatalf("expected disengaged on F1 release, got %v", got)
	}
}

func TestEmptyCombinationNeverMatches(t *testing.T) {
	d := NewDetector(Combination{})

	if tr := d.Evaluate(); tr != NoTransition {
		t.Fatalf("first evaluation should not engage, got %v", tr)
	}
	got := feed(d, Down(KeyLeftControl), Down(KeyA), Up(KeyA), Up(KeyLeftControl), Down(KeySpace))
	if len(got) != 0 {
		t.Fatalf("empty combination must never engage, got %v", got)
	}
	if d.Matched() {
		t.Fatal("empty combination reported matched")
	}
}

func TestConfigureIsIdempotent(t *testing.T) {
	c := Combination{Control: true, Key: KeyA}
	d := NewDetector(c)

	feed(d, Down(KeyLeftControl), Down(KeyA))
	if !d.Matched() {
		t.Fatal("expected matched")
	}

	d.Configure(c)
	d.Configure(c)
	if !d.Matched() {
		t.Fatal("configure must not change the matched state")
	}
	if got := feed(d, Down(KeyA)); len(got) != 0 {
		t.Fatalf("configure twice must not re-emit, got %v", got)
	}
}

func TestConfigureDefersEvaluation(t *testing.T) {
	d := NewDetector(Combination{Key: KeyF2})
	feed(d, Down(KeyF1))

	d.Configure(Combination{Key: KeyF1})
	if d.Matched() {
		t.Fatal("configure alone must not evaluate")
	}
	if got := feed(d, Down(KeyF1)); len(got) != 1 || got[0] != Engaged {
		t.Fatalf("expected engaged on next event, got %v", got)
	}

	// Switching away disengages on the next event of any key
	d.Configure(Combination{Key: KeyF3})
	if got := feed(d, Down(KeyB)); len(got) != 1 || got[0] != Disengaged {
		t.Fatalf("expected disengaged after reconfigure, got %v", got)
	}
}

func TestMatchTable(t *testing.T) {
	tests := []struct {
		name  string
		combo Combination
		held  []Key
		want  bool
	}{
		{"ctrl only held", Combination{Control: true}, []Key{KeyLeftControl}, true},
		{"right ctrl does not count", Combination{Control: true}, []Key{KeyRightControl}, false},
		{"tab and space", Combination{Tab: true, Space: true}, []Key{KeyTab, KeySpace}, true},
		{"tab missing", Combination{Tab: true, Space: true}, []Key{KeySpace}, false},
		{"all four plus key", Combination{Control: true, Shift: true, Tab: true, Space: true, Key: KeyZ},
			[]Key{KeyLeftControl, KeyLeftShift, KeyTab, KeySpace, KeyZ}, true},
		{"extra keys held", Combination{Shift: true}, []Key{KeyLeftShift, KeyQ, KeyW}, true},
		{"raw key", Combination{Key: RawKey(0x1ff)}, []Key{RawKey(0x1ff)}, true},
		{"empty", Combination{}, []Key{KeyA}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for _, k := range tt.held {
				tr.KeyDown(k)
			}
			if got := tt.combo.SatisfiedBy(tr); got != tt.want {
				t.Errorf("SatisfiedBy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Combination{Shift: true, Key: KeyLeftControl}.Normalize()
	want := Combination{Control: true, Shift: true}
	if got != want {
		t.Errorf("Normalize = %+v, want %+v", got, want)
	}

	keep := Combination{Control: true, Key: KeyF5}
	if keep.Normalize() != keep {
		t.Errorf("Normalize changed a valid combination: %+v", keep.Normalize())
	}
}

func TestCombinationString(t *testing.T) {
	c := Combination{Control: true, Space: true, Key: KeyF1}
	if got := c.String(); got != "Ctrl+Space+F1" {
		t.Errorf("String = %q", got)
	}
	if got := (Combination{}).String(); got != "None" {
		t.Errorf("empty String = %q", got)
	}
}

func TestCaptureNext(t *testing.T) {
	d := NewDetector(Combination{Key: KeyF1})

	var captured []Key
	d.CaptureNext(func(k Key) { captured = append(captured, k) })
	if !d.Capturing() {
		t.Fatal("expected capture armed")
	}

	feed(d, Up(KeyB), Down(KeyG), Down(KeyH))
	if len(captured) != 1 || captured[0] != KeyG {
		t.Fatalf("expected single capture of G, got %v", captured)
	}
	if d.Capturing() {
		t.Fatal("capture should disarm after firing")
	}
	if !d.Tracker().IsPressed(KeyG) {
		t.Fatal("captured key must still be tracked")
	}

	d.CaptureNext(func(k Key) { t.Fatalf("cancelled capture fired with %v", k) })
	if !d.CancelCapture() {
		t.Fatal("expected pending capture to be cancelled")
	}
	feed(d, Down(KeyJ))
}

func TestResetDisengages(t *testing.T) {
	d := NewDetector(Combination{Space: true})
	feed(d, Down(KeySpace))

	if tr := d.Reset(); tr != Disengaged {
		t.Fatalf("Reset = %v, want disengaged", tr)
	}
	if d.Tracker().IsPressed(KeySpace) {
		t.Fatal("Reset must clear key state")
	}
	if tr := d.Reset(); tr != NoTransition {
		t.Fatalf("second Reset = %v, want none", tr)
	}
}

func TestConfigureConcurrentWithEvents(t *testing.T) {
	d := NewDetector(Combination{Control: true})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				d.Configure(Combination{Control: true})
			} else {
				d.Configure(Combination{Shift: true})
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		d.ProcessEvent(Down(KeyLeftControl))
		d.ProcessEvent(Up(KeyLeftControl))
		_ = d.Matched()
	}
	wg.Wait()

	// With nothing held the final event always leaves the detector unmatched
	d.ProcessEvent(Up(KeyLeftShift))
	if d.Matched() {
		t.Fatal("expected unmatched with no keys held")
	}
}

func TestUnknownEventTypeIgnored(t *testing.T) {
	d := NewDetector(Combination{Key: KeyA})
	if tr := d.ProcessEvent(Event{Type: EventType(42), Key: KeyA}); tr != NoTransition {
		t.Fatalf("unknown event type produced %v", tr)
	}
	if d.Tracker().IsPressed(KeyA) {
		t.Fatal("unknown event type must not change state")
	}
}
