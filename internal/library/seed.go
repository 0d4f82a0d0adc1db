package library

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSeed returns the reference records served when no seed file is
// configured.
func DefaultSeed() Seed {
	return Seed{
		Authors: []Author{
			{ID: "1", Name: "Kate Chopin"},
			{ID: "2", Name: "Paul Auster"},
		},
		Publishers: []Publisher{
			{ID: "1", Name: "Penguinn"},
		},
		Books: []Book{
			{ID: "1", Title: "What is Vibe Coding", AuthorID: "1", PublisherID: "1"},
			{ID: "2", Title: "Help! Im Drowning in the Javascript Ecosystem", AuthorID: "2", PublisherID: "1"},
			{ID: "3", Title: "The 1 Billion Dollar Vibe Coding Company", AuthorID: "2", PublisherID: "1"},
		},
	}
}

// LoadSeed reads a YAML seed file. Unknown keys are rejected.
func LoadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return seed, nil
}
