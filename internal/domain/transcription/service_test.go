package transcription

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

type fakeModel struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []GenerateRequest
}

func (m *fakeModel) Generate(_ context.Context, req GenerateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	return m.reply, m.err
}

var testAudio = base64.StdEncoding.EncodeToString([]byte("OggS fake audio"))

func TestService_Extract_StripsFence(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"patientName\":\"Ali\",\"medications\":[{\"name\":\"Tab X\",\"instructions\":\"1 daily\",\"duration\":\"5\"}]}\n```"}
	svc := NewService(model, &Vocabulary{MedicationNames: []string{"Tab X"}})

	out, err := svc.Extract(context.Background(), &ExtractRequest{AudioData: testAudio})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["patientName"] != "Ali" {
		t.Errorf("unexpected reply: %v", out)
	}
	meds, ok := out["medications"].([]interface{})
	if !ok || len(meds) != 1 {
		t.Errorf("expected one medication, got %v", out["medications"])
	}

	call := model.calls[0]
	if call.MIMEType != "audio/ogg" {
		t.Errorf("expected default mime audio/ogg, got %s", call.MIMEType)
	}
	if string(call.Audio) != "OggS fake audio" {
		t.Errorf("audio not decoded: %q", call.Audio)
	}
	if strings.Contains(call.Prompt, "EXISTING DATA START") {
		t.Error("fresh extraction should not embed existing data")
	}
}

func TestService_Extract_UpdateVariant(t *testing.T) {
	model := &fakeModel{reply: `{"diagnosis":"HTN"}`}
	svc := NewService(model, nil)

	prior := &StructuredVisit{PatientName: "Ali", Medications: []Medication{{Name: "Tab X", Instructions: "1 daily", Duration: "5"}}}
	_, err := svc.Extract(context.Background(), &ExtractRequest{
		AudioData:           testAudio,
		AudioMimeType:       "audio/webm",
		ExistingPatientData: prior,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := model.calls[0]
	if call.MIMEType != "audio/webm" {
		t.Errorf("expected audio/webm, got %s", call.MIMEType)
	}
	if !strings.Contains(call.Prompt, "- Tab X; 1 daily; 5") {
		t.Errorf("prior medications missing from prompt:\n%s", call.Prompt)
	}
}

func TestService_Extract_Validation(t *testing.T) {
	svc := NewService(&fakeModel{reply: `{}`}, nil)
	for _, audio := range []string{"", "   ", "not base64!!"} {
		_, err := svc.Extract(context.Background(), &ExtractRequest{AudioData: audio})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("audio %q: expected validation error, got %v", audio, err)
		}
	}
}

func TestService_Extract_UnparseableReply(t *testing.T) {
	svc := NewService(&fakeModel{reply: "Sorry, I could not hear that."}, nil)
	_, err := svc.Extract(context.Background(), &ExtractRequest{AudioData: testAudio})
	if !apperr.Is(err, apperr.KindUpstreamFormat) {
		t.Fatalf("expected upstream format error, got %v", err)
	}
	var appErr *apperr.Error
	errors.As(err, &appErr)
	details, _ := appErr.Details.(map[string]string)
	if details["rawResponse"] != "Sorry, I could not hear that." {
		t.Errorf("raw reply not carried: %v", appErr.Details)
	}
}

func TestService_Extract_ModelErrors(t *testing.T) {
	svc := NewService(&fakeModel{err: errors.New("connection reset")}, nil)
	_, err := svc.Extract(context.Background(), &ExtractRequest{AudioData: testAudio})
	if !apperr.Is(err, apperr.KindUpstreamUnavailable) {
		t.Errorf("expected upstream unavailable, got %v", err)
	}

	svc = NewService(&fakeModel{err: apperr.UpstreamUnavailable("AI service is not configured.", nil)}, nil)
	_, err = svc.Extract(context.Background(), &ExtractRequest{AudioData: testAudio})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Message != "AI service is not configured." {
		t.Errorf("expected model error to pass through, got %v", err)
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{`{"a":1}`, false},
		{"```json\n{\"a\":1}\n```", false},
		{"```\n{\"a\":1}```  ", false},
		{"```JSON\n{\"a\":1}\n```", false},
		{"```Json {\"a\":1}```", false},
		{"  {\"a\":1}\n", false},
		{`[1,2]`, true},
		{`null`, true},
		{"```json\n```", true},
		{`{"a":`, true},
	}
	for _, tt := range tests {
		out, err := ParseReply(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseReply(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && out["a"] != float64(1) {
			t.Errorf("ParseReply(%q) = %v", tt.raw, out)
		}
	}
}
