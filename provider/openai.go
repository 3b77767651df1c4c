// Package provider implements the generative-text collaborator over an
// OpenAI-compatible chat-completions API. The relay only sees the
// contract.Provider interface; failures surface as a single typed error.
package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chat-relay/contract"
	apperrors "chat-relay/errors"
)

const defaultTimeout = 60 * time.Second

type OpenAIProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *slog.Logger
}

func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration, log *slog.Logger) *OpenAIProvider {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type chatStreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate performs one blocking completion call.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts contract.Options) (contract.Completion, error) {
	body, err := p.do(ctx, p.buildRequest(prompt, opts, false))
	if err != nil {
		return contract.Completion{}, err
	}
	defer func() { _ = body.Close() }()

	var response chatResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return contract.Completion{}, fmt.Errorf("%w: decoding response: %v", apperrors.ErrProviderFailure, err)
	}
	if len(response.Choices) == 0 {
		return contract.Completion{}, fmt.Errorf("%w: response carried no choices", apperrors.ErrProviderFailure)
	}
	return contract.Completion{
		Content: response.Choices[0].Message.Content,
		Model:   response.Model,
		Tokens:  response.Usage.TotalTokens,
	}, nil
}

// GenerateStream performs one streaming call, invoking onFragment for every
// delta in arrival order. It returns the accumulated completion once the
// provider signals end of stream.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, prompt string, opts contract.Options, onFragment func(string)) (contract.Completion, error) {
	body, err := p.do(ctx, p.buildRequest(prompt, opts, true))
	if err != nil {
		return contract.Completion{}, err
	}
	defer func() { _ = body.Close() }()

	completion := contract.Completion{Model: p.resolveModel(opts)}
	var content strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return contract.Completion{}, fmt.Errorf("%w: malformed stream chunk: %v", apperrors.ErrProviderFailure, err)
		}
		if chunk.Model != "" {
			completion.Model = chunk.Model
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if fragment := chunk.Choices[0].Delta.Content; fragment != "" {
			content.WriteString(fragment)
			onFragment(fragment)
		}
	}
	if err := scanner.Err(); err != nil {
		return contract.Completion{}, fmt.Errorf("%w: reading stream: %v", apperrors.ErrProviderFailure, err)
	}

	completion.Content = content.String()
	return completion, nil
}

func (p *OpenAIProvider) buildRequest(prompt string, opts contract.Options, stream bool) chatRequest {
	return chatRequest{
		Model:       p.resolveModel(opts),
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	}
}

func (p *OpenAIProvider) resolveModel(opts contract.Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return p.model
}

// do posts the request and returns the body on 2xx, a typed error
// otherwise. Timeouts and context cancellation surface as ProviderFailure.
func (p *OpenAIProvider) do(ctx context.Context, request chatRequest) (io.ReadCloser, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", apperrors.ErrProviderFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", apperrors.ErrProviderFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrProviderFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", apperrors.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	return resp.Body, nil
}
