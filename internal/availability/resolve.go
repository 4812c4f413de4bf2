package availability

// Resolve returns a copy of slots with Booked set for every slot that strictly
// overlaps a busy interval. busy is expected to be the output of Merge.
func Resolve(slots []Slot, busy []Interval) []Slot {
	out := make([]Slot, len(slots))
	for i, slot := range slots {
		slot.Booked = false
		window := slot.Interval()
		for _, b := range busy {
			if b.Overlaps(window) {
				slot.Booked = true
				break
			}
		}
		out[i] = slot
	}
	return out
}
