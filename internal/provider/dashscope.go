package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// dashScopeClient talks to Alibaba's DashScope text generation API,
// which wraps chat messages in an input/output envelope instead of the
// OpenAI layout.
type dashScopeClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	endpoint   string
}

const (
	dashScopeBaseURL = "https://dashscope.aliyuncs.com/api/v1"
	dashScopeModel   = "qwen-plus"
)

func newDashScope(cfg Config) *dashScopeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = dashScopeBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = dashScopeModel
	}
	return &dashScopeClient{
		httpClient: &http.Client{Timeout: 3 * time.Minute},
		apiKey:     cfg.APIKey,
		model:      model,
		endpoint:   strings.TrimRight(baseURL, "/") + "/services/aigc/text-generation/generation",
	}
}

type dashScopeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type dashScopeRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []dashScopeMessage `json:"messages"`
	} `json:"input"`
	Parameters struct {
		Temperature    float64 `json:"temperature"`
		ResultFormat   string  `json:"result_format"`
		EnableThinking bool    `json:"enable_thinking"`
	} `json:"parameters"`
}

type dashScopeResponse struct {
	Output struct {
		Text    string `json:"text"`
		Choices []struct {
			Message dashScopeMessage `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *dashScopeClient) Call(ctx context.Context, prompt string) (string, Usage, error) {
	reqBody := dashScopeRequest{Model: c.model}
	reqBody.Input.Messages = []dashScopeMessage{{Role: "user", Content: prompt}}
	reqBody.Parameters.Temperature = 0.2
	reqBody.Parameters.ResultFormat = "message"
	reqBody.Parameters.EnableThinking = false

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", Usage{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", Usage{}, classifyTransport(ProviderAlibaba, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", Usage{}, classifyTransport(ProviderAlibaba, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", Usage{}, &Error{
			Kind:     kindFromStatus(resp.StatusCode),
			Provider: ProviderAlibaba,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var parsed dashScopeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", Usage{}, &Error{Kind: KindMalformed, Provider: ProviderAlibaba, Err: fmt.Errorf("decode response: %w", err)}
	}

	reply := parsed.Output.Text
	if len(parsed.Output.Choices) > 0 {
		reply = parsed.Output.Choices[0].Message.Content
	}
	if reply == "" {
		return "", Usage{}, &Error{Kind: KindMalformed, Provider: ProviderAlibaba, Err: errors.New("response has no content")}
	}

	usage := Usage{
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		usage = EstimateUsage(prompt, reply)
	}
	return reply, usage, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
