package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAI is the production Generator backed by the chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ServiceError{Kind: KindTransient, Err: errors.New("completion returned no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps a backend error to its retry classification. Rate limits,
// overload and gateway failures retry; auth and bad-request failures do
// not. Plain transport errors are treated as transient.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind := KindPermanent
		switch apiErr.StatusCode {
		case 408, 429, 500, 502, 503, 504, 529:
			kind = KindTransient
		}
		return &ServiceError{Kind: kind, StatusCode: apiErr.StatusCode, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ServiceError{Kind: KindTransient, Err: err}
}
