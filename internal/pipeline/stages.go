package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownStage indicates a stage identifier outside the configured set.
	ErrUnknownStage = errors.New("pipeline: unknown stage")
	// ErrInvalidStages indicates a stage list that is empty or contains duplicates.
	ErrInvalidStages = errors.New("pipeline: invalid stage configuration")
)

// Stages is an ordered, duplicate free set of stage identifiers. The zero
// value has no stages and rejects every transition.
type Stages struct {
	ids   []string
	index map[string]int
}

// NewStages validates ids and returns them as a Stages set in the given order.
func NewStages(ids ...string) (Stages, error) {
	if len(ids) == 0 {
		return Stages{}, fmt.Errorf("%w: at least one stage is required", ErrInvalidStages)
	}
	index := make(map[string]int, len(ids))
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return Stages{}, fmt.Errorf("%w: stage identifiers must not be blank", ErrInvalidStages)
		}
		if _, dup := index[id]; dup {
			return Stages{}, fmt.Errorf("%w: duplicate stage %q", ErrInvalidStages, id)
		}
		index[id] = len(ordered)
		ordered = append(ordered, id)
	}
	return Stages{ids: ordered, index: index}, nil
}

// MustStages is like NewStages but panics on invalid input.
func MustStages(ids ...string) Stages {
	stages, err := NewStages(ids...)
	if err != nil {
		panic(err)
	}
	return stages
}

// IDs returns a copy of the stage identifiers in configured order.
func (s Stages) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len reports the number of configured stages.
func (s Stages) Len() int {
	return len(s.ids)
}

// Contains reports whether id is a configured stage.
func (s Stages) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Index returns the position of id, or -1 when it is not configured.
func (s Stages) Index(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// StatusUpdate is the single field mutation a caller should persist.
type StatusUpdate struct {
	EntityID  string
	NewStatus string
}

// Transition is the outcome of a drop: either an update or a no-op.
type Transition struct {
	Update StatusUpdate
	NoOp   bool
}

// Transition computes the status change for moving entityID from source onto
// destination. Dropping onto the source column is always a no-op, even for
// stages that are not configured; any other destination must be configured.
func (s Stages) Transition(entityID, source, destination string) (Transition, error) {
	if source == destination {
		return Transition{NoOp: true}, nil
	}
	if !s.Contains(destination) {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStage, destination)
	}
	return Transition{Update: StatusUpdate{EntityID: entityID, NewStatus: destination}}, nil
}
