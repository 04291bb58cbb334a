package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/palm-oracle/internal/application"
	appai "github.com/bryanwahyu/palm-oracle/internal/application/ai"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
	"github.com/bryanwahyu/palm-oracle/internal/report"
)

const DefaultMaxImageBytes = 10 << 20

var (
	ErrNoImage  = errors.New("no image captured")
	ErrNoResult = errors.New("no reading yet")

	// the session was reset or restarted while the model was running
	errMovedOn = errors.New("session moved on")
)

// Service implements the wizard use-cases on top of the session state machine.
// History is optional; without it readings live only in the session.
type Service struct {
	Sessions session.Store
	Images   reading.ImageStore
	Oracle   reading.Oracle
	History  reading.Repository
	Clock    application.Clock
	Log      *zap.Logger

	MaxImageBytes  int
	AnalyzeTimeout time.Duration
}

// Snapshot is the session as a client renders it.
type Snapshot struct {
	*session.Session
	LoadingText string `json:"loading_text,omitempty"`
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) snapshot(sess *session.Session) Snapshot {
	return Snapshot{Session: sess, LoadingText: sess.LoadingText(s.now())}
}

func (s *Service) load(ctx context.Context, id session.ID) (*session.Session, error) {
	return s.Sessions.Get(ctx, id)
}

func (s *Service) save(ctx context.Context, sess *session.Session) error {
	sess.UpdatedAt = s.now()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// update applies fn atomically in the store and stamps UpdatedAt.
func (s *Service) update(ctx context.Context, id session.ID, fn func(*session.Session) error) (*session.Session, error) {
	return s.Sessions.Update(ctx, id, func(sess *session.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		sess.UpdatedAt = s.now()
		return nil
	})
}

// mutate is update returning the snapshot.
func (s *Service) mutate(ctx context.Context, id session.ID, fn func(*session.Session) error) (Snapshot, error) {
	sess, err := s.update(ctx, id, fn)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(sess), nil
}

func (s *Service) Start(ctx context.Context) (Snapshot, error) {
	sess := session.New(session.ID(uuid.New().String()), s.now())
	if err := s.save(ctx, sess); err != nil {
		return Snapshot{}, err
	}
	s.log().Debug("session started", zap.String("session", string(sess.ID)))
	return s.snapshot(sess), nil
}

func (s *Service) Get(ctx context.Context, id session.ID) (Snapshot, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(sess), nil
}

func (s *Service) SubmitProfile(ctx context.Context, id session.ID, p reading.Profile) (Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error { return sess.SubmitProfile(p) })
}

func (s *Service) EditProfile(ctx context.Context, id session.ID) (Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error { return sess.EditProfile() })
}

// AttachImage validates and stores the photo, then moves the session to confirm.
func (s *Service) AttachImage(ctx context.Context, id session.ID, data []byte) (Snapshot, error) {
	limit := s.MaxImageBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	if len(data) > limit {
		return Snapshot{}, fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(data), limit)
	}
	mime, err := DetectImageType(data)
	if err != nil {
		return Snapshot{}, err
	}

	sess, err := s.load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if sess.State != session.StateCapture {
		return Snapshot{}, fmt.Errorf("%w: cannot attach image in state %s", session.ErrInvalidTransition, sess.State)
	}

	key := fmt.Sprintf("sessions/%s/%s%s", id, uuid.New().String(), imageExt[mime])
	url, err := s.Images.Put(ctx, key, data, mime)
	if err != nil {
		return Snapshot{}, fmt.Errorf("store image: %w", err)
	}
	ref := session.ImageRef{Key: key, URL: url, MIMEType: mime, Size: len(data)}
	snap, err := s.mutate(ctx, id, func(sess *session.Session) error { return sess.AttachImage(ref) })
	if err != nil {
		s.dropImage(ctx, key)
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) AttachDataURL(ctx context.Context, id session.ID, dataURL string) (Snapshot, error) {
	data, err := ParseDataURL(dataURL)
	if err != nil {
		return Snapshot{}, err
	}
	return s.AttachImage(ctx, id, data)
}

// DiscardImage is the retake action on the preview step.
func (s *Service) DiscardImage(ctx context.Context, id session.ID) (Snapshot, error) {
	var old *session.ImageRef
	snap, err := s.mutate(ctx, id, func(sess *session.Session) error {
		var err error
		old, err = sess.DiscardImage()
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}
	if old != nil {
		s.dropImage(ctx, old.Key)
	}
	return snap, nil
}

// Analyze runs the one model call for this session. Model failures are not returned
// as errors: they are stored on the session as a user-facing message.
// Claiming and finishing the analysis are atomic store updates, so concurrent calls
// on one session get ErrAnalysisInFlight and never reach the model.
func (s *Service) Analyze(ctx context.Context, id session.ID) (Snapshot, error) {
	started := s.now()
	sess, err := s.update(ctx, id, func(sess *session.Session) error {
		return sess.BeginAnalysis(started)
	})
	if err != nil {
		return Snapshot{}, err
	}
	token := sess.AnalyzingSince

	log := s.log().With(
		zap.String("session", string(id)),
		zap.String("provider", s.Oracle.Provider()),
		zap.String("model", s.Oracle.Model()),
	)
	log.Info("analysis started")

	result, runErr := s.run(ctx, sess)

	var readingID reading.ReadingID
	if runErr == nil && s.History != nil {
		readingID = reading.ReadingID(uuid.New().String())
	}
	kind, msg := appai.Describe(runErr)

	current, err := s.update(ctx, id, func(cur *session.Session) error {
		if cur.State != session.StateAnalyzing || !cur.AnalyzingSince.Equal(token) {
			return errMovedOn
		}
		if runErr != nil {
			return cur.FailAnalysis(kind, msg)
		}
		return cur.CompleteAnalysis(result, readingID)
	})
	if errors.Is(err, errMovedOn) {
		current, err = s.load(ctx, id)
		if err != nil {
			return Snapshot{}, err
		}
		log.Info("analysis outcome dropped, session moved on", zap.String("state", string(current.State)))
		return s.snapshot(current), nil
	}
	if err != nil {
		return Snapshot{}, err
	}

	if runErr != nil {
		log.Warn("analysis failed", zap.Error(runErr), zap.String("kind", string(kind)),
			zap.Duration("took", s.now().Sub(started)))
		return s.snapshot(current), nil
	}

	if readingID != "" && !s.record(ctx, current, result, readingID, log) {
		// history gagal: hasil tetap tampil, tapi tanpa reading id
		cleared, err := s.update(ctx, id, func(cur *session.Session) error {
			if cur.ReadingID != readingID {
				return errMovedOn
			}
			cur.ReadingID = ""
			return nil
		})
		switch {
		case err == nil:
			current = cleared
		case !errors.Is(err, errMovedOn):
			return Snapshot{}, err
		}
	}
	log.Info("analysis finished", zap.String("reading", string(current.ReadingID)),
		zap.Duration("took", s.now().Sub(started)))
	return s.snapshot(current), nil
}

func (s *Service) run(ctx context.Context, sess *session.Session) (*reading.PalmAnalysis, error) {
	if s.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AnalyzeTimeout)
		defer cancel()
	}
	data, mime, err := s.Images.Get(ctx, sess.Image.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", reading.ErrImageUnavailable, err)
	}
	if mime == "" {
		mime = sess.Image.MIMEType
	}
	return s.Oracle.Read(ctx, sess.Profile, reading.Image{Data: data, MIMEType: mime})
}

// record appends the reading to history; a history failure does not fail the reading.
func (s *Service) record(ctx context.Context, sess *session.Session, result *reading.PalmAnalysis, id reading.ReadingID, log *zap.Logger) bool {
	r := &reading.Reading{
		ID:        id,
		CreatedAt: s.now(),
		Profile:   sess.Profile,
		ImageKey:  sess.Image.Key,
		ImageURL:  sess.Image.URL,
		Provider:  s.Oracle.Provider(),
		Model:     s.Oracle.Model(),
		Analysis:  *result,
	}
	if err := s.History.Save(ctx, r); err != nil {
		log.Error("history save failed", zap.Error(err))
		return false
	}
	return true
}

// Reset goes back to capture keeping the profile. The photo is deleted unless a
// history entry still points at it.
func (s *Service) Reset(ctx context.Context, id session.ID) (Snapshot, error) {
	var old *session.ImageRef
	var kept bool
	snap, err := s.mutate(ctx, id, func(sess *session.Session) error {
		kept = sess.ReadingID != ""
		var err error
		old, err = sess.Reset()
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}
	if old != nil && !kept {
		s.dropImage(ctx, old.Key)
	}
	return snap, nil
}

// Close deletes the session.
func (s *Service) Close(ctx context.Context, id session.ID) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if sess.Image != nil && sess.ReadingID == "" {
		s.dropImage(ctx, sess.Image.Key)
	}
	return nil
}

// Image returns the captured photo.
func (s *Service) Image(ctx context.Context, id session.ID) ([]byte, string, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if sess.Image == nil {
		return nil, "", ErrNoImage
	}
	data, mime, err := s.Images.Get(ctx, sess.Image.Key)
	if err != nil {
		return nil, "", fmt.Errorf("load image: %w", err)
	}
	if mime == "" {
		mime = sess.Image.MIMEType
	}
	return data, mime, nil
}

// Report collects what the printable report needs for a finished session.
func (s *Service) Report(ctx context.Context, id session.ID) (report.Data, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return report.Data{}, err
	}
	if sess.State != session.StateResult || sess.Result == nil {
		return report.Data{}, ErrNoResult
	}
	d := report.Data{Profile: sess.Profile, Analysis: sess.Result, CreatedAt: sess.UpdatedAt}
	if sess.Image != nil {
		if data, mime, err := s.Images.Get(ctx, sess.Image.Key); err == nil {
			d.Image, d.ImageMIME = data, mime
			if d.ImageMIME == "" {
				d.ImageMIME = sess.Image.MIMEType
			}
		} else {
			s.log().Warn("report without photo", zap.String("session", string(id)), zap.Error(err))
		}
	}
	return d, nil
}

func (s *Service) dropImage(ctx context.Context, key string) {
	if err := s.Images.Delete(ctx, key); err != nil {
		s.log().Warn("image cleanup failed", zap.String("key", key), zap.Error(err))
	}
}
