package provider

import (
	"context"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// Anthropic streams from the Messages API.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic returns a client for apiKey. baseURL overrides the endpoint
// when non-empty.
func NewAnthropic(apiKey, baseURL string) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Anthropic{client: anthropic.NewClient(opts...)}
}

func (a *Anthropic) Stream(ctx context.Context, req Request) (Stream, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    anthropicMessages(req.Messages),
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	s := a.client.Messages.NewStreaming(ctx, params)
	// Connection errors surface on the first Next.
	return &anthropicStream{s: s}, nil
}

func anthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		if m.Image != nil {
			blocks = append(blocks, anthropic.NewImageBlockBase64(m.Image.MediaType, m.Image.Data))
		}
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

type anthropicStream struct {
	s      *ssestream.Stream[anthropic.MessageStreamEventUnion]
	closed bool
}

func (st *anthropicStream) Next() (string, error) {
	if st.closed {
		return "", io.EOF
	}
	for st.s.Next() {
		event := st.s.Current()
		ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
			return delta.Text, nil
		}
	}
	if err := st.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (st *anthropicStream) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true
	return st.s.Close()
}
