package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVocabulary indicates a vocabulary name that is not registered.
var ErrUnknownVocabulary = errors.New("pipeline: unknown vocabulary")

// Stage is the canonical lifecycle position shared by every vocabulary.
type Stage int

const (
	// StageNew is where freshly captured leads start.
	StageNew Stage = iota
	// StageContacted marks a lead that has been reached at least once.
	StageContacted
	// StageInProgress marks active work, such as a booked appointment.
	StageInProgress
	// StageClosed ends the lifecycle.
	StageClosed
)

var canonicalStages = []Stage{StageNew, StageContacted, StageInProgress, StageClosed}

// String returns the canonical key used in configuration files.
func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageContacted:
		return "contacted"
	case StageInProgress:
		return "in_progress"
	case StageClosed:
		return "closed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ParseStage resolves a canonical key such as "in_progress".
func ParseStage(key string) (Stage, error) {
	for _, stage := range canonicalStages {
		if stage.String() == strings.ToLower(strings.TrimSpace(key)) {
			return stage, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, key)
}

// Vocabulary maps canonical stages to the labels one part of the product uses.
type Vocabulary struct {
	name    string
	labels  map[Stage]string
	byLabel map[string]Stage
	stages  Stages
}

// NewVocabulary requires a distinct, non-blank label for every canonical stage.
func NewVocabulary(name string, labels map[Stage]string) (Vocabulary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Vocabulary{}, fmt.Errorf("%w: vocabulary name is required", ErrInvalidStages)
	}

	v := Vocabulary{
		name:    name,
		labels:  make(map[Stage]string, len(canonicalStages)),
		byLabel: make(map[string]Stage, len(canonicalStages)),
	}
	ordered := make([]string, 0, len(canonicalStages))
	for _, stage := range canonicalStages {
		label, ok := labels[stage]
		if !ok || strings.TrimSpace(label) == "" {
			return Vocabulary{}, fmt.Errorf("%w: vocabulary %q has no label for %s", ErrInvalidStages, name, stage)
		}
		if _, dup := v.byLabel[label]; dup {
			return Vocabulary{}, fmt.Errorf("%w: vocabulary %q reuses label %q", ErrInvalidStages, name, label)
		}
		v.labels[stage] = label
		v.byLabel[label] = stage
		ordered = append(ordered, label)
	}
	if len(labels) != len(canonicalStages) {
		return Vocabulary{}, fmt.Errorf("%w: vocabulary %q maps unknown stages", ErrInvalidStages, name)
	}

	stages, err := NewStages(ordered...)
	if err != nil {
		return Vocabulary{}, err
	}
	v.stages = stages
	return v, nil
}

// Name identifies the vocabulary.
func (v Vocabulary) Name() string {
	return v.name
}

// Stages returns the labels as a configured stage set in lifecycle order.
func (v Vocabulary) Stages() Stages {
	return v.stages
}

// Label returns the label for stage.
func (v Vocabulary) Label(stage Stage) string {
	return v.labels[stage]
}

// Stage resolves a label back to its canonical stage.
func (v Vocabulary) Stage(label string) (Stage, error) {
	stage, ok := v.byLabel[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a %s stage", ErrUnknownStage, label, v.name)
	}
	return stage, nil
}

// Translate converts a label from v into the equivalent label of target.
func (v Vocabulary) Translate(label string, target Vocabulary) (string, error) {
	stage, err := v.Stage(label)
	if err != nil {
		return "", err
	}
	return target.Label(stage), nil
}
