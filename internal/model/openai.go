package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"multilingual-qa/internal/tokenizer"
)

// OpenAIModel calls an OpenAI-compatible Chat Completions endpoint that serves the
// fine-tuned seq2seq model. Beam search and language forcing are sent as extra
// body fields understood by the serving runtime.
type OpenAIModel struct {
	model  openai.ChatModel
	client *openai.Client
}

// NewOpenAIModel builds a client against baseURL. Retries are disabled: a failed
// generation is reported once.
func NewOpenAIModel(baseURL, apiKey, model string) (*OpenAIModel, error) {
	if baseURL == "" {
		return nil, errors.New("base url required")
	}
	if model == "" {
		return nil, errors.New("model name required")
	}
	cli := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &OpenAIModel{
		model:  openai.ChatModel(model),
		client: &cli,
	}, nil
}

func (m *OpenAIModel) Generate(ctx context.Context, enc tokenizer.Encoding, params GenerateParams) (Output, error) {
	if m == nil || m.client == nil {
		return Output{}, errors.New("nil openai model")
	}
	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               m.model,
		Messages:            []openai.ChatCompletionMessageParamUnion{userMessage(enc.Text)},
		MaxCompletionTokens: openai.Int(int64(params.MaxLength)),
		Temperature:         openai.Float(0),
	},
		option.WithJSONSet("num_beams", params.NumBeams),
		option.WithJSONSet("early_stopping", params.EarlyStopping),
		option.WithJSONSet("forced_bos_token_id", params.ForcedBOSTokenID),
		option.WithJSONSet("src_lang", params.SourceLang),
		option.WithJSONSet("tgt_lang", params.TargetLang),
	)
	if err != nil {
		return Output{}, err
	}
	if len(resp.Choices) == 0 {
		return Output{}, errors.New("openai: no choices returned")
	}
	return Output{Text: resp.Choices[0].Message.Content}, nil
}

func userMessage(text string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(text),
			},
		},
	}
}

// OpenAIProvider loads a Handle backed by OpenAIModel.
type OpenAIProvider struct {
	BaseURL   string
	APIKey    string
	ModelName string
}

// Load checks that the serving endpoint knows the model before handing it out.
func (p OpenAIProvider) Load(ctx context.Context) (*Handle, error) {
	m, err := NewOpenAIModel(p.BaseURL, p.APIKey, p.ModelName)
	if err != nil {
		return nil, &LoadError{Model: p.ModelName, Err: err}
	}
	if _, err := m.client.Models.Get(ctx, p.ModelName); err != nil {
		return nil, &LoadError{Model: p.ModelName, Err: fmt.Errorf("model not available at %s: %w", p.BaseURL, err)}
	}
	return &Handle{
		Model:     m,
		Tokenizer: tokenizer.New(),
		Device:    "remote:" + p.BaseURL,
		Name:      p.ModelName,
	}, nil
}
