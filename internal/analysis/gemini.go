package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/config"
)

const systemPrompt = `You are a document analysis service. You receive the plain text of a document and return a single JSON object with exactly these keys:
- "summary": a concise summary of the document, 2-4 sentences.
- "category": one of: contract, invoice, report, resume, correspondence, technical, financial, legal, other.
- "metadata": an object of notable fields extracted from the document (dates, parties, amounts, titles). Use an empty object if nothing stands out.
Return only the JSON object. No prose, no code fences.`

// GeminiClient implements Client against the Gemini API. One model handle is
// configured at startup and reused across requests.
type GeminiClient struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	logger  *zap.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "gemini_client"), zap.String("model", cfg.Model)),
	}, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Analyze sends text to the model and decodes the structured result. The
// call is bounded by the configured timeout.
func (c *GeminiClient) Analyze(ctx context.Context, text string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(buildPrompt(text)))
	if err != nil {
		classified := classifyUpstreamError(err)
		c.logger.Warn("Analysis call failed",
			zap.String("code", string(apperr.CodeOf(classified))),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, classified
	}

	raw := responseText(resp)
	if raw == "" {
		return nil, apperr.New(apperr.CodeAnalysisMalformedResponse, fmt.Errorf("empty response"))
	}

	result, err := DecodeResult(raw)
	if err != nil {
		c.logger.Warn("Analysis response undecodable", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}

	c.logger.Debug("Analysis completed",
		zap.String("category", string(result.Category)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func buildPrompt(text string) string {
	return "Analyze the following document text:\n\n" + text
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}

// DecodeResult parses the model's JSON payload into a validated Result.
// Code fences are stripped first; models add them despite instructions.
func DecodeResult(raw string) (*Result, error) {
	cleaned := stripFences(raw)

	var payload struct {
		Summary  string         `json:"summary"`
		Category string         `json:"category"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, apperr.New(apperr.CodeAnalysisMalformedResponse, fmt.Errorf("decode analysis response: %w", err))
	}

	result := &Result{
		Summary:  strings.TrimSpace(payload.Summary),
		Category: NormalizeCategory(payload.Category),
		Metadata: payload.Metadata,
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
