package transcription

import (
	"strings"
	"testing"
)

func TestBuildPrompt_Vocabulary(t *testing.T) {
	vocab := &Vocabulary{
		MedicationNames: []string{"Tab Atcam 8 mg", "Aspirin"},
		Instructions:    []string{"1 daily", "at night"},
		Durations:       []string{"5 days", "15"},
	}
	for _, prior := range []*StructuredVisit{nil, {}} {
		p := BuildPrompt(vocab, prior)
		for _, want := range []string{
			"--- KNOWN MEDICATION NAMES START ---\nTab Atcam 8 mg, Aspirin\n--- KNOWN MEDICATION NAMES END ---",
			"--- COMMON INSTRUCTIONS START ---\n1 daily; at night\n--- COMMON INSTRUCTIONS END ---",
			"--- COMMON DURATIONS START ---\n5 days; 15\n--- COMMON DURATIONS END ---",
		} {
			if !strings.Contains(p, want) {
				t.Errorf("prompt (prior=%v) missing %q", prior != nil, want)
			}
		}
	}
}

func TestBuildPrompt_ExistingDefaults(t *testing.T) {
	p := BuildPrompt(nil, &StructuredVisit{PatientName: "Ali", Complaints: "  "})
	for _, want := range []string{
		"--- EXISTING DATA START ---",
		"Patient Name: Ali\n",
		"Age: N/A\n",
		"Complaints: N/A\n",
		"Medications:\nN/A\n",
		"--- EXISTING DATA END ---",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
