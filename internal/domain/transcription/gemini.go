package transcription

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-pro-preview-06-05"

// contentGenerator is the slice of the genai client the adapter calls.
// genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiModel calls a Gemini model through the genai SDK. The client is
// created on first use and shared by every later call; a failed creation
// is retried by the next call.
type GeminiModel struct {
	apiKey string
	model  string

	mu        sync.Mutex
	generator contentGenerator
	group     singleflight.Group

	newClient func(ctx context.Context, apiKey string) (contentGenerator, error)
}

func NewGeminiModel(apiKey, model string) *GeminiModel {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiModel{apiKey: apiKey, model: model, newClient: newGenAIClient}
}

func newGenAIClient(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

func (g *GeminiModel) client(ctx context.Context) (contentGenerator, error) {
	g.mu.Lock()
	gen := g.generator
	g.mu.Unlock()
	if gen != nil {
		return gen, nil
	}

	v, err, _ := g.group.Do("client", func() (interface{}, error) {
		g.mu.Lock()
		if g.generator != nil {
			defer g.mu.Unlock()
			return g.generator, nil
		}
		g.mu.Unlock()

		created, err := g.newClient(ctx, g.apiKey)
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.generator = created
		g.mu.Unlock()
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(contentGenerator), nil
}

func generationConfig() *genai.GenerateContentConfig {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	safety := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		safety = append(safety, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		TopK:             genai.Ptr[float32](1),
		TopP:             genai.Ptr[float32](0.95),
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
		SafetySettings:   safety,
	}
}

// Generate sends the audio and prompt as one user turn and returns the
// first text part of the first candidate.
func (g *GeminiModel) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.apiKey == "" {
		return "", apperr.UpstreamUnavailable("AI service is not configured.", errors.New("GEMINI_API_KEY is not set"))
	}
	gen, err := g.client(ctx)
	if err != nil {
		return "", apperr.UpstreamUnavailable("AI service is not available.", err)
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: req.MIMEType, Data: req.Audio}},
			{Text: req.Prompt},
		},
	}}
	resp, err := gen.GenerateContent(ctx, g.model, contents, generationConfig())
	if err != nil {
		return "", apperr.UpstreamUnavailable("AI service request failed.", err)
	}
	return firstText(resp)
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", apperr.UpstreamUnavailable("Failed to get a response from AI.", errors.New("no candidates"))
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", apperr.UpstreamUnavailable("Failed to get a response from AI.", errors.New("empty candidate"))
	}
	text := cand.Content.Parts[0].Text
	if text == "" {
		return "", apperr.UpstreamUnavailable("Failed to get a response from AI.", errors.New("first part has no text"))
	}
	return text, nil
}
