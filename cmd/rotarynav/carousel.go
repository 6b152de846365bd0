package main

// RotaryOption is one visible carousel entry.
type RotaryOption struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	ActionIndex int    `json:"action_index"`
}

// createEndlessOptions lays out the seven carousel slots around activeIndex.
//
// The result is three entries before the active action, the active action in
// the middle slot and three entries after it, wrapping around the action list.
// With fewer than seven actions entries repeat.
func createEndlessOptions(activeIndex int, actions []Action) []RotaryOption {
	n := len(actions)
	if n == 0 {
		return nil
	}
	active := ((activeIndex % n) + n) % n

	forward := make([]RotaryOption, 0, carouselForward)
	backward := make([]RotaryOption, 0, carouselBackward)

	for i := active; len(forward) < carouselForward || len(backward) < carouselBackward; i = (i + 1) % n {
		if len(forward) < carouselForward {
			forward = append(forward, newRotaryOption(i, actions[i]))
		}
		if len(backward) < carouselBackward {
			// i walks forward from active, so this is (active - steps - 1) mod n
			last := (active - (i - active + 1) + n) % n
			backward = append(backward, newRotaryOption(last, actions[last]))
		}
	}

	out := make([]RotaryOption, 0, carouselSlots)
	for i := len(backward) - 1; i >= 0; i-- {
		out = append(out, backward[i])
	}
	return append(out, forward...)
}

func newRotaryOption(index int, a Action) RotaryOption {
	return RotaryOption{Icon: a.Icon, Title: a.Title, ActionIndex: index}
}

// slotRotation is the angular position of slot i; the middle slot sits at 0.
func slotRotation(i int) float64 {
	return rotationDegree * -1 * float64(carouselCenter-i)
}

// layoutSlots attaches each option's angular position.
func layoutSlots(options []RotaryOption) []OptionSlot {
	slots := make([]OptionSlot, len(options))
	for i, o := range options {
		slots[i] = OptionSlot{RotaryOption: o, Degree: slotRotation(i)}
	}
	return slots
}
