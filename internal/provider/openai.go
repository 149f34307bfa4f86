package provider

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI streams from the Chat Completions API.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI returns a client for apiKey. baseURL overrides the endpoint when
// non-empty, which also serves OpenAI-compatible servers.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

func (o *OpenAI) Stream(ctx context.Context, req Request) (Stream, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		if m.Image == nil {
			msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role: role,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Content},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL: "data:" + m.Image.MediaType + ";base64," + m.Image.Data,
				}},
			},
		})
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return &openaiStream{s: stream}, nil
}

type openaiStream struct {
	s      *openai.ChatCompletionStream
	closed bool
}

func (st *openaiStream) Next() (string, error) {
	if st.closed {
		return "", io.EOF
	}
	for {
		resp, err := st.s.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
			return resp.Choices[0].Delta.Content, nil
		}
	}
}

func (st *openaiStream) Close() error {
	if !st.closed {
		st.closed = true
		st.s.Close()
	}
	return nil
}
