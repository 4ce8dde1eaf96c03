package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIClient speaks the OpenAI chat completions protocol. DeepSeek
// and the demo gateway expose the same wire format, so they share this
// implementation with different base URLs and default models.
type openAIClient struct {
	client *openai.Client
	id     string
	model  string
}

func newOpenAI(cfg Config, defaultBaseURL, defaultModel string) *openAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	cli := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0), // retries are handled by WithRetry
	)
	return &openAIClient{client: &cli, id: cfg.Provider, model: model}
}

func (c *openAIClient) Call(ctx context.Context, prompt string) (string, Usage, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", Usage{}, &Error{Kind: kindFromStatus(apierr.StatusCode), Provider: c.id, Err: err}
		}
		return "", Usage{}, classifyTransport(c.id, err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, &Error{Kind: KindMalformed, Provider: c.id, Err: errors.New("response has no choices")}
	}
	reply := resp.Choices[0].Message.Content
	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		usage = EstimateUsage(prompt, reply)
	}
	return reply, usage, nil
}
