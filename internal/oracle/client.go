// internal/oracle/client.go
package oracle

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	genai "google.golang.org/genai"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// Completer is the transport boundary to the reasoning model. Implementations
// perform one blocking round trip; retry policy lives in the Oracle.
type Completer interface {
	Complete(ctx context.Context, prompt string, screenshotPath string) (string, error)
}

// GenAIClient implements Completer using the Google GenAI SDK. The screenshot
// artifact, when readable, is attached as an inline image part so the model
// reasons over both the page text and its rendering.
type GenAIClient struct {
	model      string
	apiTimeout time.Duration
	client     *genai.Client
	logger     *zap.Logger
}

var _ Completer = (*GenAIClient)(nil)

// NewGenAIClient initializes the Gemini-backed completer.
func NewGenAIClient(ctx context.Context, cfg config.OracleConfig, logger *zap.Logger) (*GenAIClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		model:      cfg.Model,
		apiTimeout: cfg.APITimeout,
		client:     client,
		logger:     logger.Named("oracle.genai"),
	}, nil
}

// Complete sends one multimodal generation request and returns the raw
// response text.
func (c *GenAIClient) Complete(ctx context.Context, prompt string, screenshotPath string) (string, error) {
	opCtx := ctx
	if c.apiTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, c.apiTimeout)
		defer cancel()
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if screenshotPath != "" {
		if data, err := os.ReadFile(screenshotPath); err != nil {
			// A missing artifact degrades the call to text-only.
			c.logger.Warn("Could not attach screenshot; continuing text-only.",
				zap.String("path", screenshotPath), zap.Error(err))
		} else if len(data) > 0 {
			parts = append(parts, genai.NewPartFromBytes(data, "image/png"))
		}
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(opCtx, c.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("genai generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("genai returned no candidates")
	}

	text := collectText(resp.Candidates[0].Content)
	c.logger.Debug("Oracle generation complete.",
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_chars", len(text)))
	return text, nil
}

// collectText concatenates the text parts of a candidate content.
func collectText(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
