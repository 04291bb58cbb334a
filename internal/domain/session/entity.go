package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

// ID tipe untuk wizard session
type ID string

// State enum, urutannya linear: profile -> capture -> confirm -> analyzing -> result
type State string

const (
	StateProfile   State = "profile"
	StateCapture   State = "capture"
	StateConfirm   State = "confirm"
	StateAnalyzing State = "analyzing"
	StateResult    State = "result"
)

// ErrorKind tells a client which recovery action to offer next to the message.
type ErrorKind string

const (
	ErrorNone       ErrorKind = ""
	ErrorCredential ErrorKind = "credential"
	ErrorQuota      ErrorKind = "quota"
	ErrorRejected   ErrorKind = "rejected"
	ErrorGeneric    ErrorKind = "generic"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid wizard transition")
	ErrAnalysisInFlight  = errors.New("analysis already in progress")
)

// ImageRef points at the captured photo in the image store.
type ImageRef struct {
	Key      string `json:"key"`
	URL      string `json:"url,omitempty"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Session is one run of the capture -> analyze -> result wizard.
type Session struct {
	ID             ID                    `json:"id"`
	State          State                 `json:"state"`
	Profile        reading.Profile       `json:"profile"`
	Image          *ImageRef             `json:"image,omitempty"`
	Result         *reading.PalmAnalysis `json:"result,omitempty"`
	ReadingID      reading.ReadingID     `json:"reading_id,omitempty"`
	Error          string                `json:"error,omitempty"`
	ErrorKind      ErrorKind             `json:"error_kind,omitempty"`
	AnalyzingSince time.Time             `json:"analyzing_since,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// New returns a session waiting for profile entry.
func New(id ID, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateProfile,
		Profile:   reading.DefaultProfile(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) transitionErr(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, op, s.State)
}

// SubmitProfile stores the profile and moves to image capture.
// Allowed while still on the capture step so the profile can be edited.
func (s *Session) SubmitProfile(p reading.Profile) error {
	if s.State != StateProfile && s.State != StateCapture {
		return s.transitionErr("submit profile")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.Profile = p
	s.State = StateCapture
	return nil
}

// EditProfile goes back from capture to the profile form.
func (s *Session) EditProfile() error {
	if s.State != StateCapture {
		return s.transitionErr("edit profile")
	}
	s.State = StateProfile
	return nil
}

func (s *Session) AttachImage(img ImageRef) error {
	if s.State != StateCapture {
		return s.transitionErr("attach image")
	}
	s.Image = &img
	s.State = StateConfirm
	return nil
}

// DiscardImage drops the previewed photo (retake). Returns the dropped ref.
func (s *Session) DiscardImage() (*ImageRef, error) {
	if s.State != StateConfirm {
		return nil, s.transitionErr("discard image")
	}
	old := s.Image
	s.Image = nil
	s.Error = ""
	s.ErrorKind = ErrorNone
	s.State = StateCapture
	return old, nil
}

func (s *Session) BeginAnalysis(now time.Time) error {
	if s.State == StateAnalyzing {
		return ErrAnalysisInFlight
	}
	if s.State != StateConfirm || s.Image == nil {
		return s.transitionErr("analyze")
	}
	s.Error = ""
	s.ErrorKind = ErrorNone
	s.AnalyzingSince = now
	s.State = StateAnalyzing
	return nil
}

func (s *Session) CompleteAnalysis(result *reading.PalmAnalysis, id reading.ReadingID) error {
	if s.State != StateAnalyzing {
		return s.transitionErr("complete analysis")
	}
	s.Result = result
	s.ReadingID = id
	s.AnalyzingSince = time.Time{}
	s.State = StateResult
	return nil
}

// FailAnalysis returns to the confirm step with the message set; the photo is kept
// so the user can retry by hand.
func (s *Session) FailAnalysis(kind ErrorKind, message string) error {
	if s.State != StateAnalyzing {
		return s.transitionErr("fail analysis")
	}
	s.Error = message
	s.ErrorKind = kind
	s.AnalyzingSince = time.Time{}
	s.State = StateConfirm
	return nil
}

// Reset clears photo, result and error and returns to capture. The profile survives.
func (s *Session) Reset() (*ImageRef, error) {
	if s.State == StateProfile {
		return nil, s.transitionErr("reset")
	}
	old := s.Image
	s.Image = nil
	s.Result = nil
	s.ReadingID = ""
	s.Error = ""
	s.ErrorKind = ErrorNone
	s.AnalyzingSince = time.Time{}
	s.State = StateCapture
	return old, nil
}
