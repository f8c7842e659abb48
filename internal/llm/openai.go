package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/osintlab/sleuth/config"
)

// OpenAIProvider implements Provider against the OpenAI HTTP API.
type OpenAIProvider struct {
	cfg     config.LLMConfig
	client  *http.Client
	backoff time.Duration
	usage   UsageRecorder
	logger  *log.Logger
}

// NewOpenAIProvider creates a provider from configuration. The API key may
// also come from the OPENAI_API_KEY environment variable. Token usage and
// estimated spend are reported to usage when it is non-nil.
func NewOpenAIProvider(cfg config.LLMConfig, usage UsageRecorder) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		backoff: 300 * time.Millisecond,
		usage:   usage,
		logger:  log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}
}

func (p *OpenAIProvider) apiKey() string {
	if p.cfg.APIKey != "" {
		return p.cfg.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (p *OpenAIProvider) baseURL() string {
	if p.cfg.BaseURL != "" {
		return p.cfg.BaseURL
	}
	return "https://api.openai.com/v1"
}

// Complete sends a chat transcript and returns the assistant reply.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	resp, _, err := p.CompleteWithUsage(ctx, messages, opts)
	return resp, err
}

// CompleteWithUsage sends a chat transcript and returns the reply plus token usage.
func (p *OpenAIProvider) CompleteWithUsage(ctx context.Context, messages []Message, opts Options) (string, Usage, error) {
	apiKey := p.apiKey()
	if apiKey == "" {
		return "", Usage{}, fmt.Errorf("OpenAI API key not configured")
	}
	if len(messages) == 0 {
		return "", Usage{}, fmt.Errorf("no messages to send")
	}

	temperature := p.cfg.Temperature
	if opts.Temperature != 0 {
		temperature = opts.Temperature
	}
	maxTokens := p.cfg.MaxTokens
	if opts.MaxTokens != 0 {
		maxTokens = opts.MaxTokens
	}

	type chatReq struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature,omitempty"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
	}
	body, err := json.Marshal(chatReq{
		Model:       p.cfg.ChatModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshal: %w", err)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := p.postJSON(ctx, "/chat/completions", body, &out); err != nil {
		return "", Usage{}, err
	}
	if len(out.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no choices in completion response")
	}
	usage := Usage{PromptTokens: out.Usage.PromptTokens, CompletionTokens: out.Usage.CompletionTokens}
	if p.usage != nil {
		p.usage.RecordLLMUsage(p.cfg.ChatModel, usage.PromptTokens, usage.CompletionTokens,
			estimateCost(p.cfg.ChatModel, usage.PromptTokens, usage.CompletionTokens))
	}
	return out.Choices[0].Message.Content, usage, nil
}

// Embed converts texts into embedding vectors, one per input, in input order.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	apiKey := p.apiKey()
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	type embedReq struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	body, err := json.Marshal(embedReq{Model: p.cfg.EmbeddingModel, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Usage struct {
			PromptTokens int64 `json:"prompt_tokens"`
		} `json:"usage"`
	}
	if err := p.postJSON(ctx, "/embeddings", body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(out.Data))
	}
	if p.usage != nil {
		p.usage.RecordLLMUsage(p.cfg.EmbeddingModel, out.Usage.PromptTokens, 0,
			estimateCost(p.cfg.EmbeddingModel, out.Usage.PromptTokens, 0))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// postJSON POSTs a JSON body and decodes the response, retrying transient
// failures with exponential backoff.
func (p *OpenAIProvider) postJSON(ctx context.Context, path string, body []byte, out interface{}) error {
	retries := p.cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			sleep := p.backoff * time.Duration(1<<attempt)
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL()+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey())

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("do: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("OpenAI status %d", resp.StatusCode)
			p.logger.Printf("retrying %s after status %d (attempt %d/%d)", path, resp.StatusCode, attempt+1, retries)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return fmt.Errorf("OpenAI status %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		return nil
	}
	return lastErr
}
