package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrMissingCredential indicates no API key is configured for the provider.
var ErrMissingCredential = errors.New("ai api key not configured")

// ErrInvalidCredential indicates the provider rejected the key (401/403, or an unknown key/model).
var ErrInvalidCredential = errors.New("ai api key rejected")

// ErrEmptyResponse indicates the provider answered without any text.
var ErrEmptyResponse = errors.New("ai returned an empty response")

// ErrMalformedResponse indicates the text could not be decoded against the schema.
var ErrMalformedResponse = errors.New("ai returned malformed json")

// ErrPalmRejected indicates the model flagged the photo as not a clear palm.
var ErrPalmRejected = errors.New("photo rejected by the model")
