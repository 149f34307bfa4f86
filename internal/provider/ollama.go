package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// Ollama streams from a local Ollama server.
type Ollama struct {
	client *api.Client
}

// NewOllama connects to baseURL, or to OLLAMA_HOST when baseURL is empty.
func NewOllama(baseURL string) (*Ollama, error) {
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base URL: %w", err)
		}
		return &Ollama{client: api.NewClient(u, http.DefaultClient)}, nil
	}
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("could not create ollama client: %w", err)
	}
	return &Ollama{client: client}, nil
}

// Stream adapts the callback-based Chat API: a goroutine runs the request and
// hands each delta over an unbuffered channel, so the server is only read as
// fast as Next is called.
func (o *Ollama) Stream(ctx context.Context, req Request) (Stream, error) {
	msgs := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		msg := api.Message{Role: m.Role, Content: m.Content}
		if m.Image != nil {
			raw, err := base64.StdEncoding.DecodeString(m.Image.Data)
			if err != nil {
				return nil, fmt.Errorf("decode image: %w", err)
			}
			msg.Images = []api.ImageData{raw}
		}
		msgs = append(msgs, msg)
	}
	stream := true
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	ctx, cancel := context.WithCancel(ctx)
	st := &ollamaStream{frags: make(chan string), cancel: cancel}
	go func() {
		defer close(st.frags)
		st.err = o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			select {
			case st.frags <- resp.Message.Content:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return st, nil
}

type ollamaStream struct {
	frags  chan string
	cancel context.CancelFunc
	err    error // written before frags is closed
	closed bool
}

func (st *ollamaStream) Next() (string, error) {
	if st.closed {
		return "", io.EOF
	}
	frag, ok := <-st.frags
	if ok {
		return frag, nil
	}
	if st.err != nil {
		return "", st.err
	}
	return "", io.EOF
}

func (st *ollamaStream) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true
	st.cancel()
	for range st.frags {
	}
	return nil
}
