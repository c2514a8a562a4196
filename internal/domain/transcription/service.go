package transcription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

const defaultAudioMIME = "audio/ogg"

var (
	leadingFence  = regexp.MustCompile("(?i)^\\s*```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```\\s*$")
)

type Service struct {
	model Model
	vocab *Vocabulary
}

func NewService(model Model, vocab *Vocabulary) *Service {
	if vocab == nil {
		vocab = &Vocabulary{}
	}
	return &Service{model: model, vocab: vocab}
}

// Extract turns a recorded narration into structured visit fields. With
// prior state the model is asked to update it instead of starting fresh.
// The reply object is returned as parsed; keys are not filtered.
func (s *Service) Extract(ctx context.Context, req *ExtractRequest) (map[string]interface{}, error) {
	if strings.TrimSpace(req.AudioData) == "" {
		return nil, apperr.Validation("Missing audioData.")
	}
	audio, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		return nil, apperr.Validation("audioData is not valid base64: %v", err)
	}
	mime := req.AudioMimeType
	if mime == "" {
		mime = defaultAudioMIME
	}

	log := zerolog.Ctx(ctx)
	log.Info().
		Int("audio_bytes", len(audio)).
		Str("mime_type", mime).
		Bool("update", req.ExistingPatientData != nil).
		Msg("extracting visit from audio")

	raw, err := s.model.Generate(ctx, GenerateRequest{
		Audio:    audio,
		MIMEType: mime,
		Prompt:   BuildPrompt(s.vocab, req.ExistingPatientData),
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.UpstreamUnavailable("AI service request failed.", err)
	}

	out, err := ParseReply(raw)
	if err != nil {
		log.Error().Err(err).Msg("model reply is not a JSON object")
		return nil, apperr.UpstreamFormat("Failed to parse AI response.", raw, err)
	}
	return out, nil
}

// ParseReply strips an optional code fence around a model reply and decodes
// it as a JSON object.
func ParseReply(raw string) (map[string]interface{}, error) {
	text := leadingFence.ReplaceAllString(raw, "")
	text = trailingFence.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("reply is null")
	}
	return out, nil
}
