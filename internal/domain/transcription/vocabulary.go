package transcription

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Vocabulary biases recognition toward the clinic's usual prescriptions.
// The file is JSON or YAML with the keys below.
type Vocabulary struct {
	MedicationNames []string `yaml:"medicationNames" json:"medicationNames"`
	Instructions    []string `yaml:"instructions" json:"instructions"`
	Durations       []string `yaml:"durations" json:"durations"`
}

// LoadVocabulary reads a vocabulary file. JSON documents parse as YAML.
func LoadVocabulary(path string) (*Vocabulary, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return &Vocabulary{}, err
	}
	var v Vocabulary
	if err := yaml.Unmarshal(content, &v); err != nil {
		return &Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return &v, nil
}
