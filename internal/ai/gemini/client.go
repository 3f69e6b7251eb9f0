package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/worksim-assessor/internal/ai"
	"github.com/spigell/worksim-assessor/internal/logger"
	"github.com/spigell/worksim-assessor/internal/utils"
)

const (
	defaultModel         = "gemini-2.5-pro"
	defaultVideoMIMEType = "video/mp4"
	defaultMaxLogLength  = 200
	defaultTemperature   = float32(0.2)
	jsonMIMEType         = "application/json"
)

// ErrEmptyResponse is returned when the model answers without any text. Callers treat it as retryable.
var ErrEmptyResponse = errors.New("gemini api returned empty response")

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client for video evaluation and text generation.
type Generator struct {
	models    modelsAPI
	model     string
	logger    *zap.Logger
	maxLogLen int
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxLogLength int, l *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model, maxLogLength, l), nil
}

func newGenerator(models modelsAPI, model string, maxLogLength int, l *zap.Logger) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Generator{
		models:    models,
		model:     model,
		logger:    logger.WithCommonFields(l, "gemini", model),
		maxLogLen: maxLogLength,
	}
}

// EvaluateVideo sends the video reference and the prompt in one user turn and asks for JSON output.
func (g *Generator) EvaluateVideo(ctx context.Context, video ai.Video, prompt string) (string, error) {
	uri := strings.TrimSpace(video.URI)
	if uri == "" {
		return "", errors.New("video uri is required")
	}

	mimeType := strings.TrimSpace(video.MIMEType)
	if mimeType == "" {
		mimeType = defaultVideoMIMEType
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(uri, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	g.logger.Debug("gemini video evaluation request",
		zap.String("video_uri", uri),
		zap.String("mime_type", mimeType),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	return g.generate(ctx, contents, jsonConfig())
}

// GenerateContent sends a text-only prompt and returns the first textual answer.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.PreviewForLog(prompt, g.maxLogLen)),
	)

	return g.generate(ctx, genai.Text(prompt), jsonConfig())
}

func jsonConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(defaultTemperature),
		ResponseMIMEType: jsonMIMEType,
	}
}

func (g *Generator) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := responseText(resp)
	if output == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.PreviewForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		// Only the first candidate with text is used.
		if builder.Len() > 0 {
			break
		}
	}

	return strings.TrimSpace(builder.String())
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
