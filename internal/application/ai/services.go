package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bryanwahyu/palm-oracle/internal/domain/ai"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
	"github.com/bryanwahyu/palm-oracle/internal/infra/ai/prompt"
)

// Service is the one place the inference provider is called and its answer decoded.
// It implements reading.Oracle.
type Service struct {
	client ai.Client
	locale string
}

func NewService(client ai.Client, locale string) *Service {
	if locale == "" {
		locale = prompt.LocaleEN
	}
	return &Service{client: client, locale: locale}
}

func (s *Service) Provider() string { return s.client.Name() }
func (s *Service) Model() string    { return s.client.Model() }

func (s *Service) Read(ctx context.Context, p reading.Profile, img reading.Image) (*reading.PalmAnalysis, error) {
	raw, err := s.client.Analyze(ctx, ai.Request{
		Image:    img.Data,
		MIMEType: img.MIMEType,
		Prompt:   prompt.ForProfile(s.locale, p),
		Schema:   prompt.Schema(),
	})
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// Decode parses the model text into a normalized analysis.
func Decode(raw string) (*reading.PalmAnalysis, error) {
	text := prompt.ExtractJSON(raw)
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyResponse
	}
	var out reading.PalmAnalysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
	}
	out.Normalize()
	if out.Rejected() {
		reason := ""
		if out.Validation != nil {
			reason = out.Validation.Reason
		}
		return nil, fmt.Errorf("%w: %s", ai.ErrPalmRejected, reason)
	}
	return &out, nil
}

const (
	msgCredential = "The oracle key is not connected or has expired. Reconnect the key and try again."
	msgQuota      = "The oracle is overwhelmed right now. Wait a moment and try again."
	msgRejected   = "No clear palm was found in the photo. Retake it with the whole palm flat, open and well lit."
	msgPhoto      = "The captured photo could not be loaded. Retake it and try again."
	msgGeneric    = "The celestial signal is faint and the reading failed. Make sure the palm in the photo is clear and unobstructed."
)

// Describe maps any failure from Read to what the user sees.
func Describe(err error) (session.ErrorKind, string) {
	switch {
	case err == nil:
		return session.ErrorNone, ""
	case errors.Is(err, ai.ErrMissingCredential), errors.Is(err, ai.ErrInvalidCredential):
		return session.ErrorCredential, msgCredential
	case errors.Is(err, ai.ErrQuotaExceeded):
		return session.ErrorQuota, msgQuota
	case errors.Is(err, ai.ErrPalmRejected):
		return session.ErrorRejected, msgRejected
	case errors.Is(err, reading.ErrImageUnavailable), errors.Is(err, reading.ErrImageNotFound):
		// gagal sebelum model dipanggil, jangan sampai kena cek teks di bawah
		return session.ErrorGeneric, msgPhoto
	}
	// some gateways only say it in the text
	text := err.Error()
	if strings.Contains(text, "not found") || strings.Contains(text, "API_KEY") {
		return session.ErrorCredential, msgCredential
	}
	return session.ErrorGeneric, msgGeneric
}
