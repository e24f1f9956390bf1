package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/MrSnakeDoc/mindmark/internal/model"
)

// Session is one model bound to one system prompt.
type Session struct {
	llm    llms.Model
	system string
	model  string
}

func (s *Session) Prompt(ctx context.Context, p model.Prompt) (string, error) {
	resp, err := s.llm.GenerateContent(ctx, s.messages(p))
	if err != nil {
		return "", classify(err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: empty response from %s", model.ErrOperation, s.model)
	}
	return resp.Choices[0].Content, nil
}

func (s *Session) PromptStreaming(ctx context.Context, p model.Prompt, onChunk func(string) error) error {
	_, err := s.llm.GenerateContent(ctx, s.messages(p),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}))
	if err != nil {
		return classify(err)
	}
	return nil
}

func (s *Session) messages(p model.Prompt) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, 2)
	if s.system != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, s.system))
	}

	parts := []llms.ContentPart{llms.TextContent{Text: p.Text}}
	for _, img := range p.Images {
		parts = append(parts, llms.BinaryPart(img.MIME, img.Data))
	}
	return append(msgs, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	})
}

// classify maps Ollama error messages onto the model sentinels so callers
// can decide on fallbacks with errors.Is.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "does not support"),
		strings.Contains(msg, "not supported"):
		return fmt.Errorf("%w: %v", model.ErrNotSupported, err)
	case strings.Contains(msg, "out of memory"),
		strings.Contains(msg, "insufficient"),
		strings.Contains(msg, "quota"):
		return fmt.Errorf("%w: %v", model.ErrResourceExhausted, err)
	case strings.Contains(msg, "too large"),
		strings.Contains(msg, "context length"),
		strings.Contains(msg, "exceeds"):
		return fmt.Errorf("%w: %v", model.ErrInputTooLarge, err)
	case strings.Contains(msg, "failed to process image"),
		strings.Contains(msg, "runner process has terminated"):
		return fmt.Errorf("%w: %v", model.ErrOperation, err)
	}
	return err
}
