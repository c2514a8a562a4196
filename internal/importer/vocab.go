package importer

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/clinicnotes/clinicnotes/internal/domain/transcription"
)

// BuildVocabulary collects the distinct medication names, instructions and
// durations of the export, each sorted.
func BuildVocabulary(in io.Reader) (*transcription.Vocabulary, error) {
	names := make(map[string]struct{})
	instructions := make(map[string]struct{})
	durations := make(map[string]struct{})

	err := readRows(in, []string{colMedName, colMedInstruct, colMedDuration}, func(r row) error {
		add(names, r.get(colMedName))
		add(instructions, r.get(colMedInstruct))
		add(durations, r.get(colMedDuration))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &transcription.Vocabulary{
		MedicationNames: sorted(names),
		Instructions:    sorted(instructions),
		Durations:       sorted(durations),
	}, nil
}

// WriteVocabulary writes v as indented JSON, the format LoadVocabulary reads.
func WriteVocabulary(w io.Writer, v *transcription.Vocabulary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func add(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
