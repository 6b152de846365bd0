package main

import "testing"

func indices(opts []RotaryOption) []int {
	out := make([]int, len(opts))
	for i, o := range opts {
		out[i] = o.ActionIndex
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreateEndlessOptions_SevenActions(t *testing.T) {
	actions := sampleActions(7)

	got := indices(createEndlessOptions(0, actions))
	want := []int{4, 5, 6, 0, 1, 2, 3}
	if !equalInts(got, want) {
		t.Fatalf("active=0: got %v, want %v", got, want)
	}

	got = indices(createEndlessOptions(3, actions))
	want = []int{0, 1, 2, 3, 4, 5, 6}
	if !equalInts(got, want) {
		t.Fatalf("active=3: got %v, want %v", got, want)
	}
}

func TestCreateEndlessOptions_SmallListsRepeat(t *testing.T) {
	tests := []struct {
		n, active int
		want      []int
	}{
		{1, 0, []int{0, 0, 0, 0, 0, 0, 0}},
		{2, 0, []int{1, 0, 1, 0, 1, 0, 1}},
		{2, 1, []int{0, 1, 0, 1, 0, 1, 0}},
		{3, 0, []int{0, 1, 2, 0, 1, 2, 0}},
		{3, 2, []int{2, 0, 1, 2, 0, 1, 2}},
	}
	for _, tt := range tests {
		got := indices(createEndlessOptions(tt.active, sampleActions(tt.n)))
		if !equalInts(got, tt.want) {
			t.Errorf("n=%d active=%d: got %v, want %v", tt.n, tt.active, got, tt.want)
		}
	}
}

// For every list size and active index the middle slot is the active action
// and neighbours are consecutive modulo n.
func TestCreateEndlessOptions_CenterAndNeighbours(t *testing.T) {
	for n := 1; n <= 12; n++ {
		actions := sampleActions(n)
		for active := 0; active < n; active++ {
			opts := createEndlessOptions(active, actions)
			if len(opts) != carouselSlots {
				t.Fatalf("n=%d active=%d: got %d slots, want %d", n, active, len(opts), carouselSlots)
			}
			if opts[carouselCenter].ActionIndex != active {
				t.Fatalf("n=%d active=%d: center slot holds %d", n, active, opts[carouselCenter].ActionIndex)
			}
			for i, o := range opts {
				want := ((active+i-carouselCenter)%n + n) % n
				if o.ActionIndex != want {
					t.Fatalf("n=%d active=%d slot %d: got %d, want %d", n, active, i, o.ActionIndex, want)
				}
				if o.Title != actions[o.ActionIndex].Title || o.Icon != actions[o.ActionIndex].Icon {
					t.Fatalf("n=%d active=%d slot %d: option does not match its action", n, active, i)
				}
			}
		}
	}
}

func TestCreateEndlessOptions_NormalizesIndexAndEmpty(t *testing.T) {
	actions := sampleActions(8)
	if got, want := indices(createEndlessOptions(-1, actions)), indices(createEndlessOptions(7, actions)); !equalInts(got, want) {
		t.Fatalf("active=-1: got %v, want %v", got, want)
	}
	if got, want := indices(createEndlessOptions(9, actions)), indices(createEndlessOptions(1, actions)); !equalInts(got, want) {
		t.Fatalf("active=9: got %v, want %v", got, want)
	}
	if opts := createEndlessOptions(0, nil); opts != nil {
		t.Fatalf("expected nil for empty action list, got %v", opts)
	}
}

func TestSlotRotation(t *testing.T) {
	want := []float64{-111, -74, -37, 0, 37, 74, 111}
	for i, w := range want {
		if got := slotRotation(i); got != w {
			t.Errorf("slot %d: got %v, want %v", i, got, w)
		}
	}

	slots := layoutSlots(createEndlessOptions(0, sampleActions(3)))
	for i, s := range slots {
		if s.Degree != slotRotation(i) {
			t.Errorf("layout slot %d: degree %v, want %v", i, s.Degree, slotRotation(i))
		}
	}
}
