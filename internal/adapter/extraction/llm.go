package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

const (
	anthropicVersion = "2023-06-01"
	maxTokens        = 1000
)

// LLMClient extracts fields through an Anthropic-style messages API.
type LLMClient struct {
	baseURL    *url.URL
	apiKey     string
	model      string
	schema     *jsonschema.Schema
	httpClient *http.Client
	logger     *slog.Logger
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewLLMClient creates a client with default timeout.
func NewLLMClient(baseURL, apiKey, modelName string, logger *slog.Logger) (*LLMClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse llm url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("llm url must be absolute")
	}
	schema, err := compileSchema(invoiceSchema())
	if err != nil {
		return nil, err
	}
	return &LLMClient{
		baseURL: parsed,
		apiKey:  apiKey,
		model:   modelName,
		schema:  schema,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Extract asks the model for the invoice fields of text.
func (c *LLMClient) Extract(ctx context.Context, text string) (map[string]string, error) {
	reply, err := c.complete(ctx, BuildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrExtractionService, err)
	}

	doc, ok := outermostObject(reply)
	if !ok {
		return nil, fmt.Errorf("%w: reply holds no json object", domainErrors.ErrExtractionService)
	}
	fields, err := parseFields(c.schema, []byte(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrExtractionService, err)
	}
	return fields, nil
}

// BuildPrompt composes the single user turn sent to the model.
func BuildPrompt(text string) string {
	quoted := make([]string, 0, len(model.InvoiceFields))
	for _, name := range model.InvoiceFields {
		quoted = append(quoted, `"`+name+`"`)
	}
	return strings.Join([]string{
		"Extract the following fields from this invoice text and return ONLY a JSON object with these exact keys:",
		strings.Join(quoted, ", "),
		"",
		"Use an empty string for any field that is not present.",
		"For monetary amounts return only the number without currency symbols.",
		"Do not include any text outside the JSON object.",
		"",
		"Invoice text:",
		text,
	}, "\n")
}

func (c *LLMClient) complete(ctx context.Context, prompt string) (string, error) {
	reqID := uuid.NewString()
	start := time.Now()

	payload, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/messages")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("llm request failed", slog.String("req_id", reqID), slog.Any("error", err))
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	c.logger.Info("llm response",
		slog.String("req_id", reqID),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(raw)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}

	var data messagesResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	for _, block := range data.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("response has no text content")
}
