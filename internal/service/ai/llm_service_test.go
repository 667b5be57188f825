package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/prestonty/timelens-be/internal/apperr"
)

type fakeChatModel struct {
	mu      sync.Mutex
	reply   string
	chunks  []string
	block   bool
	err     error
	inputs  [][]*schema.Message
	options []*model.Options
}

func (f *fakeChatModel) record(input []*schema.Message, opts []model.Option) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	f.options = append(f.options, model.GetCommonOptions(&model.Options{}, opts...))
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.record(input, opts)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(input, opts)
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func TestGenerateBuildsRoleTaggedMessages(t *testing.T) {
	fake := &fakeChatModel{reply: "  Neil Armstrong \n"}
	svc, err := NewService(context.Background(), fake, time.Second)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	got, err := svc.Generate(context.Background(), Request{
		System:      "You name characters.",
		Prompt:      "Name one character from {Moon Landing}.",
		Model:       "gpt-4o",
		MaxTokens:   10,
		Temperature: 0.9,
	})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if got != "Neil Armstrong" {
		t.Fatalf("expected trimmed output, got %q", got)
	}

	if len(fake.inputs) != 1 || len(fake.inputs[0]) != 2 {
		t.Fatalf("expected one call with two messages, got %+v", fake.inputs)
	}
	sys, user := fake.inputs[0][0], fake.inputs[0][1]
	if sys.Role != schema.System || sys.Content != "You name characters." {
		t.Fatalf("unexpected system message %+v", sys)
	}
	if user.Role != schema.User || user.Content != "Name one character from {Moon Landing}." {
		t.Fatalf("unexpected user message %+v", user)
	}

	opts := fake.options[0]
	if opts.MaxTokens == nil || *opts.MaxTokens != 10 {
		t.Fatalf("max tokens not forwarded: %+v", opts.MaxTokens)
	}
	if opts.Temperature == nil || *opts.Temperature != float32(0.9) {
		t.Fatalf("temperature not forwarded: %+v", opts.Temperature)
	}
	if opts.Model == nil || *opts.Model != "gpt-4o" {
		t.Fatalf("model not forwarded: %+v", opts.Model)
	}
}

func TestGenerateClassifiesFailures(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("rate limited")}
	svc, err := NewService(context.Background(), fake, time.Second)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	_, err = svc.Generate(context.Background(), Request{System: "s", Prompt: "p"})
	if !errors.Is(err, apperr.ErrUpstreamGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if errors.Is(err, apperr.ErrUpstreamTimeout) {
		t.Fatalf("plain failure classified as timeout: %v", err)
	}
}

func TestGenerateTimesOut(t *testing.T) {
	fake := &fakeChatModel{block: true}
	svc, err := NewService(context.Background(), fake, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	_, err = svc.Generate(context.Background(), Request{System: "s", Prompt: "p"})
	if !errors.Is(err, apperr.ErrUpstreamTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestStreamCollects(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"I was ", "there ", "when it happened."}}
	svc, err := NewService(context.Background(), fake, time.Second)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	sr, err := svc.Stream(context.Background(), Request{System: "s", Prompt: "p", MaxTokens: 200})
	if err != nil {
		t.Fatalf("Stream err: %v", err)
	}
	text, err := Collect(sr)
	if err != nil {
		t.Fatalf("Collect err: %v", err)
	}
	if !strings.HasPrefix(text, "I was there") || !strings.HasSuffix(text, "happened.") {
		t.Fatalf("unexpected streamed text %q", text)
	}
}

func TestNewServiceRequiresModel(t *testing.T) {
	if _, err := NewService(context.Background(), nil, time.Second); err == nil {
		t.Fatal("expected error without chat model")
	}
}
