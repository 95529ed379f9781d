package types

import "testing"

func TestFrontierLessEqual(t *testing.T) {
	tests := []struct {
		name     string
		f, g     Frontier
		expected bool
	}{
		{"equal", At(3), At(3), true},
		{"strictly less", At(2), At(5), true},
		{"strictly greater", At(5), At(2), false},
		{"anything <= empty", At(100), EmptyFrontier(), true},
		{"empty not <= anything but empty", EmptyFrontier(), At(100), false},
		{"empty <= empty", EmptyFrontier(), EmptyFrontier(), true},
		{"min <= min", MinFrontier(), MinFrontier(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.LessEqual(tt.g); got != tt.expected {
				t.Errorf("LessEqual(%s, %s) = %v, want %v", tt.f, tt.g, got, tt.expected)
			}
		})
	}
}

func TestFrontierLess(t *testing.T) {
	if !At(2).Less(At(3)) {
		t.Error("expected {2} < {3}")
	}
	if At(3).Less(At(3)) {
		t.Error("expected {3} not< {3}")
	}
	if !At(3).Less(EmptyFrontier()) {
		t.Error("expected {3} < {}")
	}
}

func TestTimestampAdvanceBy(t *testing.T) {
	if got := Timestamp(2).AdvanceBy(At(5)); got != 5 {
		t.Errorf("AdvanceBy = %d, want 5", got)
	}
	if got := Timestamp(7).AdvanceBy(At(5)); got != 7 {
		t.Errorf("AdvanceBy should not move time backward, got %d", got)
	}
	if got := Timestamp(7).AdvanceBy(EmptyFrontier()); got != 7 {
		t.Errorf("AdvanceBy(empty) should be a no-op, got %d", got)
	}
}

func TestDescriptionValidate(t *testing.T) {
	if err := (Description{Lower: At(0), Upper: At(2)}).Validate(); err != nil {
		t.Errorf("expected valid description, got %v", err)
	}
	if err := (Description{Lower: At(2), Upper: At(2)}).Validate(); err == nil {
		t.Error("expected error for lower == upper")
	}
	if err := (Description{Lower: At(3), Upper: At(2)}).Validate(); err == nil {
		t.Error("expected error for lower > upper")
	}
}

func TestDescriptionInRange(t *testing.T) {
	d := Description{Lower: At(2), Upper: At(5)}
	for _, tt := range []struct {
		t        Timestamp
		expected bool
	}{
		{1, false},
		{2, true},
		{4, true},
		{5, false},
	} {
		if got := d.InRange(tt.t); got != tt.expected {
			t.Errorf("InRange(%d) = %v, want %v", tt.t, got, tt.expected)
		}
	}
}

func TestCorrectionBufferConvergesOnCancellingUpdates(t *testing.T) {
	buf := NewCorrectionBuffer()
	row := Payload{Row: []byte("r")}
	buf.Append(Update{Payload: row, Time: 1, Diff: 1})
	buf.Append(Update{Payload: row, Time: 1, Diff: -1})

	if buf.Len() != 1 {
		t.Fatalf("expected one consolidated entry before Consolidate, got %d", buf.Len())
	}

	buf.Consolidate()
	if buf.Len() != 0 {
		t.Errorf("expected cancelling updates to net to zero and be dropped, got %d entries", buf.Len())
	}

	d := Description{Lower: At(0), Upper: At(2)}
	if got := buf.Slice(d); len(got) != 0 {
		t.Errorf("expected zero artifacts worth of updates, got %d", len(got))
	}
}

func TestCorrectionBufferSliceRespectsWindow(t *testing.T) {
	buf := NewCorrectionBuffer()
	row := Payload{Row: []byte("r")}
	buf.Append(Update{Payload: row, Time: 1, Diff: 1})
	buf.Append(Update{Payload: row, Time: 10, Diff: 1})

	d := Description{Lower: At(0), Upper: At(2)}
	got := buf.Slice(d)
	if len(got) != 1 || got[0].Time != 1 {
		t.Errorf("Slice(%s) = %+v, want only the t=1 update", d, got)
	}
}

func TestCorrectionBufferAdvanceByDoesNotAlterDiff(t *testing.T) {
	buf := NewCorrectionBuffer()
	row := Payload{Row: []byte("r")}
	buf.Append(Update{Payload: row, Time: 1, Diff: 3})
	buf.AdvanceBy(At(5))

	d := Description{Lower: At(0), Upper: At(10)}
	got := buf.Slice(d)
	if len(got) != 1 || got[0].Time != 5 || got[0].Diff != 3 {
		t.Errorf("AdvanceBy should round time up without touching diff, got %+v", got)
	}
}
