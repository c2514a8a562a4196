package transcription

import "context"

// Medication is one prescription line as the model reports it.
type Medication struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
	Duration     string `json:"duration"`
}

// StructuredVisit is the field set the model is asked to produce. It is
// also the shape of the prior state sent back for an update.
type StructuredVisit struct {
	PatientName string       `json:"patientName,omitempty"`
	Age         string       `json:"age,omitempty"`
	Gender      string       `json:"gender,omitempty"`
	Complaints  string       `json:"complaints,omitempty"`
	Examination string       `json:"examination,omitempty"`
	Diagnosis   string       `json:"diagnosis,omitempty"`
	Medications []Medication `json:"medications,omitempty"`
}

// ExtractRequest is the body of an extraction call.
type ExtractRequest struct {
	AudioData           string           `json:"audioData"`
	AudioMimeType       string           `json:"audioMimeType"`
	ExistingPatientData *StructuredVisit `json:"existingPatientData,omitempty"`
}

// GenerateRequest is one multimodal prompt: inline audio plus text.
type GenerateRequest struct {
	Audio    []byte
	MIMEType string
	Prompt   string
}

// Model is a generative model that answers with text.
type Model interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
