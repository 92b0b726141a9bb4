package scheduler

import (
	"sort"
	"time"
)

// Slot is a reserved interval [Start, End) on a resource. An empty ResourceID
// stands for the shared calendar and overlaps every resource.
type Slot struct {
	ID         string
	ResourceID string
	Start      time.Time
	End        time.Time
}

// Conflict names an existing slot that overlaps the candidate.
type Conflict struct {
	WithSlotID string
	ResourceID string
	Start      time.Time
	End        time.Time
}

// DetectConflicts returns every slot in existing that overlaps candidate,
// ordered by start then id. Slots sharing the candidate's ID are ignored, as
// are empty or inverted intervals.
func DetectConflicts(existing []Slot, candidate Slot) []Conflict {
	if !candidate.End.After(candidate.Start) {
		return nil
	}

	var conflicts []Conflict
	for _, slot := range existing {
		if candidate.ID != "" && slot.ID == candidate.ID {
			continue
		}
		if !slot.End.After(slot.Start) || !sameResource(slot, candidate) {
			continue
		}
		if slot.Start.Before(candidate.End) && candidate.Start.Before(slot.End) {
			conflicts = append(conflicts, Conflict{
				WithSlotID: slot.ID,
				ResourceID: slot.ResourceID,
				Start:      slot.Start,
				End:        slot.End,
			})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Start.Equal(conflicts[j].Start) {
			return conflicts[i].WithSlotID < conflicts[j].WithSlotID
		}
		return conflicts[i].Start.Before(conflicts[j].Start)
	})
	return conflicts
}

// DetectOverlaps returns, for each slot, the conflicts against the others.
// Slots without conflicts are omitted.
func DetectOverlaps(slots []Slot) map[string][]Conflict {
	overlaps := make(map[string][]Conflict)
	for i, slot := range slots {
		others := make([]Slot, 0, len(slots)-1)
		others = append(others, slots[:i]...)
		others = append(others, slots[i+1:]...)
		if conflicts := DetectConflicts(others, slot); len(conflicts) > 0 {
			overlaps[slot.ID] = conflicts
		}
	}
	return overlaps
}

func sameResource(a, b Slot) bool {
	return a.ResourceID == "" || b.ResourceID == "" || a.ResourceID == b.ResourceID
}
