package httpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/palm-oracle/internal/application"
	"github.com/bryanwahyu/palm-oracle/internal/application/history"
	"github.com/bryanwahyu/palm-oracle/internal/application/wizard"
	domai "github.com/bryanwahyu/palm-oracle/internal/domain/ai"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
	"github.com/bryanwahyu/palm-oracle/internal/infra/db/memory"
	"github.com/bryanwahyu/palm-oracle/internal/infra/sessionstore"
	"github.com/bryanwahyu/palm-oracle/internal/infra/storage"
	"github.com/bryanwahyu/palm-oracle/internal/middleware"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

type stubOracle struct{ err error }

func (s *stubOracle) Read(context.Context, reading.Profile, reading.Image) (*reading.PalmAnalysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &reading.PalmAnalysis{
		Overall:   "the river bends",
		Archetype: reading.Archetype{Name: "The Wanderer"},
		Talents:   []reading.Talent{{Field: "Craft", Score: 64}},
	}, nil
}
func (s *stubOracle) Provider() string { return "stub" }
func (s *stubOracle) Model() string    { return "stub-1" }

type server struct {
	*httptest.Server
	oracle *stubOracle
	wizard *wizard.Service
}

func newServer(t *testing.T, opts Options) *server {
	t.Helper()
	images := storage.NewMemory()
	repo := memory.NewReadingRepository()
	oracle := &stubOracle{}
	wiz := &wizard.Service{
		Sessions: sessionstore.NewMemory(),
		Images:   images,
		Oracle:   oracle,
		History:  repo,
		Clock:    application.SystemClock{},
	}
	hist := &history.Service{Repo: repo, Images: images}
	srv := httptest.NewServer(NewRouter(wiz, hist, opts))
	t.Cleanup(srv.Close)
	return &server{Server: srv, oracle: oracle, wizard: wiz}
}

func (s *server) do(t *testing.T, method, path, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type snapshot struct {
	ID          string                `json:"id"`
	State       session.State         `json:"state"`
	Profile     reading.Profile       `json:"profile"`
	Image       *session.ImageRef     `json:"image"`
	Result      *reading.PalmAnalysis `json:"result"`
	ReadingID   string                `json:"reading_id"`
	Error       string                `json:"error"`
	ErrorKind   session.ErrorKind     `json:"error_kind"`
	LoadingText string                `json:"loading_text"`
}

// confirmed drives a new session to the confirm step.
func (s *server) confirmed(t *testing.T) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := decode[snapshot](t, resp)

	resp = s.do(t, http.MethodPut, "/v1/sessions/"+snap.ID+"/profile", "application/json",
		[]byte(`{"age": 42, "gender": "M"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/v1/sessions/"+snap.ID+"/image", "image/jpeg", jpeg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return snap.ID
}

func TestRouter_WizardFlow(t *testing.T) {
	s := newServer(t, Options{})

	resp := s.do(t, http.MethodPost, "/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := decode[snapshot](t, resp)
	assert.Equal(t, session.StateProfile, snap.State)
	assert.Equal(t, 25, snap.Profile.Age)
	assert.Equal(t, "/v1/sessions/"+snap.ID, resp.Header.Get("Location"))
	id := snap.ID

	resp = s.do(t, http.MethodPut, "/v1/sessions/"+id+"/profile", "application/json", []byte(`{"age": 42, "gender": "M"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decode[snapshot](t, resp)
	assert.Equal(t, session.StateCapture, snap.State)
	assert.Equal(t, reading.GenderMale, snap.Profile.Gender)

	// multipart upload like a browser form
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "palm.jpg")
	require.NoError(t, err)
	_, err = fw.Write(jpeg)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	resp = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/image", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decode[snapshot](t, resp)
	assert.Equal(t, session.StateConfirm, snap.State)

	resp = s.do(t, http.MethodGet, "/v1/sessions/"+id+"/image", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	resp = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/analyze", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decode[snapshot](t, resp)
	assert.Equal(t, session.StateResult, snap.State)
	assert.Equal(t, "The Wanderer", snap.Result.Archetype.Name)
	require.NotEmpty(t, snap.ReadingID)

	resp = s.do(t, http.MethodGet, "/v1/sessions/"+id+"/report", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = s.do(t, http.MethodGet, "/v1/sessions/"+id+"/report?format=text", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "The Wanderer")

	resp = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/reset", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decode[snapshot](t, resp)
	assert.Equal(t, session.StateCapture, snap.State)
	assert.Equal(t, 42, snap.Profile.Age)

	// the reading survives in history
	resp = s.do(t, http.MethodGet, "/v1/history", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[reading.PaginatedResult](t, resp)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 42, page.Data[0].Profile.Age)

	resp = s.do(t, http.MethodDelete, "/v1/sessions/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = s.do(t, http.MethodGet, "/v1/sessions/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_DataURLUpload(t *testing.T) {
	s := newServer(t, Options{})
	resp := s.do(t, http.MethodPost, "/v1/sessions", "", nil)
	id := decode[snapshot](t, resp).ID
	s.do(t, http.MethodPut, "/v1/sessions/"+id+"/profile", "application/json", []byte(`{"age": 20, "gender": "female"}`))

	body, _ := json.Marshal(map[string]string{"data_url": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)})
	resp = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/image", "application/json", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateConfirm, decode[snapshot](t, resp).State)

	resp = s.do(t, http.MethodDelete, "/v1/sessions/"+id+"/image", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateCapture, decode[snapshot](t, resp).State)
}

func TestRouter_AnalysisFailureIsNotHTTPError(t *testing.T) {
	s := newServer(t, Options{})
	id := s.confirmed(t)
	s.oracle.err = domai.ErrMissingCredential

	resp := s.do(t, http.MethodPost, "/v1/sessions/"+id+"/analyze", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[snapshot](t, resp)
	assert.Equal(t, session.StateConfirm, snap.State)
	assert.Equal(t, session.ErrorCredential, snap.ErrorKind)
	assert.NotEmpty(t, snap.Error)
}

func TestRouter_ErrorStatuses(t *testing.T) {
	s := newServer(t, Options{})
	resp := s.do(t, http.MethodPost, "/v1/sessions", "", nil)
	id := decode[snapshot](t, resp).ID
	missing := "9b2f4c1e-1111-4a2b-8c3d-000000000000"

	cases := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		status      int
	}{
		{"bad session id", http.MethodGet, "/v1/sessions/not-a-uuid", "", "", http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/v1/sessions/" + missing, "", "", http.StatusNotFound},
		{"bad gender", http.MethodPut, "/v1/sessions/" + id + "/profile", "application/json", `{"age": 30, "gender": "x"}`, http.StatusBadRequest},
		{"bad age", http.MethodPut, "/v1/sessions/" + id + "/profile", "application/json", `{"age": 300, "gender": "f"}`, http.StatusBadRequest},
		{"image before profile", http.MethodPost, "/v1/sessions/" + id + "/image", "image/jpeg", string(jpeg), http.StatusConflict},
		{"analyze without image", http.MethodPost, "/v1/sessions/" + id + "/analyze", "", "", http.StatusConflict},
		{"no report yet", http.MethodGet, "/v1/sessions/" + id + "/report", "", "", http.StatusNotFound},
		{"unknown reading", http.MethodGet, "/v1/history/" + missing, "", "", http.StatusNotFound},
		{"bad content type", http.MethodPost, "/v1/sessions/" + id + "/image", "text/plain", "hi", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.do(t, tc.method, tc.path, tc.contentType, []byte(tc.body))
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}

	s.do(t, http.MethodPut, "/v1/sessions/"+id+"/profile", "application/json", []byte(`{"age": 30, "gender": "f"}`))
	resp = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/image", "image/png", []byte("not really a png"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRouter_OversizedMultipartUpload(t *testing.T) {
	s := newServer(t, Options{})
	s.wizard.MaxImageBytes = 1024

	resp := s.do(t, http.MethodPost, "/v1/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[snapshot](t, resp).ID
	resp = s.do(t, http.MethodPut, "/v1/sessions/"+id+"/profile", "application/json", []byte(`{"age": 30, "gender": "f"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// lebih besar dari batas body (limit*4/3 + 64KiB), bukan cuma batas gambar
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "palm.jpg")
	require.NoError(t, err)
	_, err = fw.Write(append(append([]byte(nil), jpeg...), make([]byte, 128<<10)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp = s.do(t, http.MethodPost, "/v1/sessions/"+id+"/image", mw.FormDataContentType(), buf.Bytes())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/v1/sessions/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateCapture, decode[snapshot](t, resp).State)
}

func TestRouter_AuthAndRateLimit(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 1)
	defer rl.Stop()
	s := newServer(t, Options{APIKeys: map[string]string{"kiosk": "k-1"}, Limiter: rl})

	resp := s.do(t, http.MethodPost, "/v1/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	call := func(path string) int {
		req, err := http.NewRequest(http.MethodPost, s.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer k-1")
		resp, err := s.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	missing := "/v1/sessions/9b2f4c1e-1111-4a2b-8c3d-000000000000/analyze"
	assert.Equal(t, http.StatusNotFound, call(missing))
	assert.Equal(t, http.StatusTooManyRequests, call(missing))
}

func TestRouter_HistoryEndpoints(t *testing.T) {
	s := newServer(t, Options{})
	id := s.confirmed(t)
	resp := s.do(t, http.MethodPost, "/v1/sessions/"+id+"/analyze", "", nil)
	rid := decode[snapshot](t, resp).ReadingID

	resp = s.do(t, http.MethodGet, "/v1/history/"+rid, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rd := decode[reading.Reading](t, resp)
	assert.Equal(t, "stub", rd.Provider)

	resp = s.do(t, http.MethodGet, "/v1/history/"+rid+"/report?format=json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "the river bends", decode[reading.PalmAnalysis](t, resp).Overall)

	resp = s.do(t, http.MethodGet, "/v1/history/"+rid+"/report?format=pdf", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/v1/history/"+rid, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/v1/history", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]int64{"deleted": 0}, decode[map[string]int64](t, resp))
}
