package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/prestonty/timelens-be/internal/apperr"
)

const defaultTimeout = 60 * time.Second

// Request is one structured generation call.
type Request struct {
	// System is the role instruction sent as the system message.
	System string
	// Prompt is the user instruction.
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Generator turns a structured request into text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (*schema.StreamReader[*schema.Message], error)
}

// Service runs requests through an eino chain: prompt template then chat model.
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

var _ Generator = (*Service)(nil)

// NewService compiles the generation chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, timeout time.Duration) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &Service{
		chain:   runnable,
		timeout: timeout,
	}, nil
}

// Generate runs the request to completion and returns the trimmed text.
func (s *Service) Generate(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	msg, err := s.chain.Invoke(callCtx, chainInput(req), compose.WithChatModelOption(modelOptions(req)...))
	if err != nil {
		return "", apperr.Upstream("generate", withDeadline(callCtx, err))
	}
	if msg == nil {
		return "", apperr.Upstream("generate", errors.New("empty response"))
	}

	content := strings.TrimSpace(msg.Content)
	log.Printf("[ai] generated %d chars with model=%s in %s", len(content), req.Model, time.Since(start).Round(time.Millisecond))
	return content, nil
}

// Stream runs the request and forwards chunks as they arrive. Errors inside the
// stream are classified the same way Generate classifies them.
func (s *Service) Stream(ctx context.Context, req Request) (*schema.StreamReader[*schema.Message], error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)

	upstream, err := s.chain.Stream(callCtx, chainInput(req), compose.WithChatModelOption(modelOptions(req)...))
	if err != nil {
		err = apperr.Upstream("stream", withDeadline(callCtx, err))
		cancel()
		return nil, err
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer cancel()
		defer upstream.Close()
		defer sw.Close()

		for {
			chunk, recvErr := upstream.Recv()
			if errors.Is(recvErr, io.EOF) {
				return
			}
			if recvErr != nil {
				sw.Send(nil, apperr.Upstream("stream", withDeadline(callCtx, recvErr)))
				return
			}
			if chunk == nil {
				continue
			}
			if closed := sw.Send(chunk, nil); closed {
				return
			}
		}
	}()

	return sr, nil
}

func chainInput(req Request) map[string]any {
	return map[string]any{
		"system": req.System,
		"query":  req.Prompt,
	}
}

func modelOptions(req Request) []model.Option {
	opts := make([]model.Option, 0, 3)
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(req.Temperature))
	}
	return opts
}

// withDeadline makes sure a call that ran out of time is recognisable as such,
// even when the chat model reported something else.
func withDeadline(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// Collect drains a stream and returns the concatenated text.
func Collect(sr *schema.StreamReader[*schema.Message]) (string, error) {
	defer sr.Close()

	var builder strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return builder.String(), nil
		}
		if err != nil {
			return builder.String(), err
		}
		if chunk != nil {
			builder.WriteString(chunk.Content)
		}
	}
}
