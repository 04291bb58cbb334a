package ai

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Request is one image + prompt + declared output schema.
type Request struct {
	Image    []byte
	MIMEType string
	Prompt   string
	Schema   jsonschema.Definition
}

type Client interface {
	Analyze(ctx context.Context, req Request) (string, error)
	Name() string
	Model() string
}
