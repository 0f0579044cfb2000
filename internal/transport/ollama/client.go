// Package ollama adapts a local Ollama server, through langchaingo, to the
// embedding and completion ports.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"

	"github.com/kailas-cloud/workvisa/internal/domain"
	"github.com/kailas-cloud/workvisa/internal/metrics"
)

const (
	defaultServerURL = "http://localhost:11434"
	providerName     = "ollama"
)

// model is the subset of *ollama.LLM this package uses.
type model interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Config holds Ollama connection settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client implements both domain.BatchEmbedder and domain.Completer for one model.
type Client struct {
	llm       model
	modelName string
	serverURL string
	http      *http.Client
	logger    *zap.Logger
}

// Compile-time checks.
var (
	_ domain.Embedder      = (*Client)(nil)
	_ domain.BatchEmbedder = (*Client)(nil)
	_ domain.Completer     = (*Client)(nil)
	_ domain.HealthChecker = (*Client)(nil)
)

// New creates a client for the given model.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultServerURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	llm, err := ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama: %w", err)
	}
	return newClient(llm, cfg, httpClient), nil
}

func newClient(llm model, cfg Config, httpClient *http.Client) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		llm:       llm,
		modelName: cfg.Model,
		serverURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:      httpClient,
		logger:    logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.modelName }

// Embed implements domain.Embedder.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := c.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

// BatchEmbed implements domain.BatchEmbedder. Ollama reports no token usage.
func (c *Client) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	vecs, err := c.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, c.modelName, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, c.modelName, "api_error").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("ollama embedding: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if len(vecs) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, c.modelName, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, c.modelName, "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("ollama returned %d vectors for %d inputs: %w",
			len(vecs), len(texts), domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, c.modelName, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, c.modelName).Observe(time.Since(start).Seconds())

	return domain.BatchEmbeddingResult{Embeddings: vecs}, nil
}

// Complete implements domain.Completer.
func (c *Client) Complete(ctx context.Context, req domain.Completion) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("ollama completion: %w: %w", domain.ErrGeneration, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("ollama completion has no choices: %w", domain.ErrGeneration)
	}

	c.logger.Debug("Completion received",
		zap.String("model", c.modelName),
		zap.String("stop_reason", resp.Choices[0].StopReason),
	)
	return resp.Choices[0].Content, nil
}

// HealthCheck lists local models; any 2xx means the server is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ollama health: status %d", resp.StatusCode)
	}
	return nil
}
