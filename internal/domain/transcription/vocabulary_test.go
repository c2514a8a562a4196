package transcription

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "vocab.json")
	os.WriteFile(jsonPath, []byte(`{"medicationNames":["Aspirin","Tab X"],"instructions":["1 daily"],"durations":["5 days"]}`), 0o600)
	yamlPath := filepath.Join(dir, "vocab.yaml")
	os.WriteFile(yamlPath, []byte("medicationNames:\n  - Aspirin\n  - Tab X\ninstructions:\n  - 1 daily\ndurations:\n  - 5 days\n"), 0o600)

	for _, path := range []string{jsonPath, yamlPath} {
		v, err := LoadVocabulary(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
		if len(v.MedicationNames) != 2 || v.Instructions[0] != "1 daily" || v.Durations[0] != "5 days" {
			t.Errorf("%s: unexpected vocabulary: %+v", path, v)
		}
	}
}

func TestLoadVocabulary_MissingOrInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"medicationNames": [`), 0o600)

	for _, path := range []string{filepath.Join(dir, "absent.json"), bad} {
		v, err := LoadVocabulary(path)
		if err == nil {
			t.Errorf("%s: expected error", path)
		}
		if v == nil || len(v.MedicationNames) != 0 {
			t.Errorf("%s: expected empty vocabulary, got %+v", path, v)
		}
	}
}
