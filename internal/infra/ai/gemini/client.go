package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/genai"

	"github.com/bryanwahyu/palm-oracle/internal/domain/ai"
)

const defaultModel = "gemini-3-flash-preview"

// Config for the Gemini provider.
type Config struct {
	// Key is resolved on every call so a rotated key is used immediately.
	Key            func() string
	Model          string
	BaseURL        string
	ThinkingBudget int32
	HTTPClient     *http.Client
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	return &Client{cfg: cfg}
}

func (c *Client) Name() string  { return "gemini" }
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) Analyze(ctx context.Context, req ai.Request) (string, error) {
	key := ""
	if c.cfg.Key != nil {
		key = strings.TrimSpace(c.cfg.Key())
	}
	if key == "" {
		return "", ai.ErrMissingCredential
	}

	// fresh client per call, murah dan selalu pakai key terbaru
	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.cfg.HTTPClient,
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image, mime),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ToSchema(req.Schema),
	}
	if c.cfg.ThinkingBudget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(c.cfg.ThinkingBudget)}
	}

	resp, err := client.Models.GenerateContent(ctx, c.cfg.Model, contents, config)
	if err != nil {
		return "", classify(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
		case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %s", ai.ErrInvalidCredential, apiErr.Message)
		case apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key"):
			return fmt.Errorf("%w: %s", ai.ErrInvalidCredential, apiErr.Message)
		case apiErr.Code == http.StatusNotFound:
			// unknown model or project: same recovery as a bad key
			return fmt.Errorf("%w: %s", ai.ErrInvalidCredential, apiErr.Message)
		}
	}
	return fmt.Errorf("failed to generate content: %w", err)
}

// ToSchema converts the shared schema definition into the Gemini schema type.
func ToSchema(def jsonschema.Definition) *genai.Schema {
	s := &genai.Schema{Description: def.Description}
	switch def.Type {
	case jsonschema.Object:
		s.Type = genai.TypeObject
	case jsonschema.Array:
		s.Type = genai.TypeArray
	case jsonschema.String:
		s.Type = genai.TypeString
	case jsonschema.Number:
		s.Type = genai.TypeNumber
	case jsonschema.Integer:
		s.Type = genai.TypeInteger
	case jsonschema.Boolean:
		s.Type = genai.TypeBoolean
	}
	if len(def.Enum) > 0 {
		s.Enum = def.Enum
	}
	if len(def.Required) > 0 {
		s.Required = def.Required
	}
	if def.Items != nil {
		s.Items = ToSchema(*def.Items)
	}
	if len(def.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(def.Properties))
		for k, v := range def.Properties {
			s.Properties[k] = ToSchema(v)
		}
	}
	return s
}
