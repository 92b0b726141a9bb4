package pipeline

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_vocabularies.yaml
var defaultVocabularies []byte

// Registry holds the known vocabularies and names the one used for storage.
type Registry struct {
	storage      string
	vocabularies map[string]Vocabulary
}

type registryDocument struct {
	Storage      string                       `yaml:"storage"`
	Vocabularies map[string]map[string]string `yaml:"vocabularies"`
}

// DefaultRegistry returns the built-in "leads" and "deals" vocabularies.
func DefaultRegistry() *Registry {
	registry, err := LoadRegistry(bytes.NewReader(defaultVocabularies))
	if err != nil {
		panic(fmt.Sprintf("pipeline: embedded vocabularies are invalid: %v", err))
	}
	return registry
}

// LoadRegistryFile reads a registry from a YAML file.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary file: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}

// LoadRegistry decodes a YAML document of the form
//
//	storage: leads
//	vocabularies:
//	  leads: {new: new, contacted: contacted, in_progress: booked, closed: completed}
//
// Unknown fields are rejected.
func LoadRegistry(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc registryDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty vocabulary document", ErrInvalidStages)
		}
		return nil, fmt.Errorf("decode vocabularies: %w", err)
	}
	if len(doc.Vocabularies) == 0 {
		return nil, fmt.Errorf("%w: no vocabularies defined", ErrInvalidStages)
	}

	registry := &Registry{
		storage:      doc.Storage,
		vocabularies: make(map[string]Vocabulary, len(doc.Vocabularies)),
	}
	for name, raw := range doc.Vocabularies {
		labels := make(map[Stage]string, len(raw))
		for key, label := range raw {
			stage, err := ParseStage(key)
			if err != nil {
				return nil, fmt.Errorf("vocabulary %q: %w", name, err)
			}
			labels[stage] = label
		}
		vocabulary, err := NewVocabulary(name, labels)
		if err != nil {
			return nil, err
		}
		registry.vocabularies[vocabulary.Name()] = vocabulary
	}

	if registry.storage == "" {
		return nil, fmt.Errorf("%w: storage vocabulary is required", ErrInvalidStages)
	}
	if _, ok := registry.vocabularies[registry.storage]; !ok {
		return nil, fmt.Errorf("%w: storage %q", ErrUnknownVocabulary, registry.storage)
	}
	return registry, nil
}

// Lookup returns the named vocabulary. An empty name selects storage.
func (r *Registry) Lookup(name string) (Vocabulary, error) {
	if name == "" {
		name = r.storage
	}
	vocabulary, ok := r.vocabularies[name]
	if !ok {
		return Vocabulary{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownVocabulary, name, strings.Join(r.Names(), ", "))
	}
	return vocabulary, nil
}

// Storage returns the vocabulary persisted entity statuses are written in.
func (r *Registry) Storage() Vocabulary {
	return r.vocabularies[r.storage]
}

// Names lists the registered vocabularies alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.vocabularies))
	for name := range r.vocabularies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
