package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type slowClient struct{}

func (slowClient) Generate(ctx context.Context, _ []Message) (Response, error) {
	<-ctx.Done()
	return Response{}, ctx.Err()
}

func TestFactory_UnknownProvider(t *testing.T) {
	f := &Factory{}
	if _, err := f.CreateClient("gigachat", "m"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestFactory_OpenAI(t *testing.T) {
	f := &Factory{OpenaiAPIKey: "k", OpenaiBaseURL: "http://localhost:1/v1", Timeout: time.Second}
	c, err := f.CreateClient("OpenAI", "gpt-4")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := c.(timeoutClient); !ok {
		t.Fatalf("expected timeout wrapper, got %T", c)
	}
}

func TestWithTimeout(t *testing.T) {
	c := WithTimeout(slowClient{}, 10*time.Millisecond)
	_, err := c.Generate(context.Background(), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}
