package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/palm-oracle/internal/bootstrap"
	"github.com/bryanwahyu/palm-oracle/internal/config"
	domai "github.com/bryanwahyu/palm-oracle/internal/domain/ai"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type stubOracle struct {
	result *reading.PalmAnalysis
	err    error
	got    reading.Profile
}

func (s *stubOracle) Read(_ context.Context, p reading.Profile, _ reading.Image) (*reading.PalmAnalysis, error) {
	s.got = p
	return s.result, s.err
}
func (s *stubOracle) Provider() string { return "stub" }
func (s *stubOracle) Model() string    { return "stub-1" }

// setup builds one in-memory app shared by every command in the test.
func setup(t *testing.T, oracle reading.Oracle) *bootstrap.App {
	t.Helper()
	cfg = config.Default()
	logger = zap.NewNop()

	app, err := bootstrap.Build(context.Background(), cfg, logger)
	require.NoError(t, err)
	app.Wizard.Oracle = oracle
	buildApp = func(context.Context, *config.Config, *zap.Logger) (*bootstrap.App, error) { return app, nil }

	readQuiet = true
	t.Cleanup(func() {
		buildApp = bootstrap.Build
		readFormat, readOut, readAge, readGender = formatText, "", 25, "female"
		renderImage, renderFormat, renderOut = "", formatHTML, ""
		historyFormat, historyOut, historyYes = formatText, "", false
		historyPage, historySize = 1, 20
	})
	return app
}

func writePhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hand.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))
	return path
}

func newCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, &out
}

func TestReadCmd_Text(t *testing.T) {
	oracle := &stubOracle{result: &reading.PalmAnalysis{
		Overall:   "a calm and patient hand",
		Archetype: reading.Archetype{Name: "The Wanderer"},
		Talents:   []reading.Talent{{Field: "Art", Score: 80}},
	}}
	app := setup(t, oracle)
	readAge, readGender = 40, "m"

	cmd, out := newCmd()
	require.NoError(t, runRead(cmd, []string{writePhoto(t)}))

	assert.Contains(t, out.String(), "The Wanderer")
	assert.Contains(t, out.String(), "a calm and patient hand")
	assert.Equal(t, reading.Profile{Age: 40, Gender: reading.GenderMale}, oracle.got)

	// reading masuk history, session sudah ditutup
	res, err := app.History.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "The Wanderer", res.Data[0].Analysis.Archetype.Name)
}

func TestReadCmd_JSONToFile(t *testing.T) {
	setup(t, &stubOracle{result: &reading.PalmAnalysis{Archetype: reading.Archetype{Name: "The Builder"}}})
	readFormat = formatJSON
	readOut = filepath.Join(t.TempDir(), "reading.json")

	cmd, out := newCmd()
	require.NoError(t, runRead(cmd, []string{writePhoto(t)}))
	assert.Empty(t, out.String())

	raw, err := os.ReadFile(readOut)
	require.NoError(t, err)
	var got struct {
		ID       string               `json:"id"`
		Age      int                  `json:"age"`
		Analysis reading.PalmAnalysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 25, got.Age)
	assert.Equal(t, "The Builder", got.Analysis.Archetype.Name)
}

func TestReadCmd_FailureShowsUserMessage(t *testing.T) {
	setup(t, &stubOracle{err: domai.ErrQuotaExceeded})

	cmd, _ := newCmd()
	err := runRead(cmd, []string{writePhoto(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overwhelmed")
}

func TestReadCmd_BadInput(t *testing.T) {
	setup(t, &stubOracle{})
	cmd, _ := newCmd()

	readGender = "x"
	assert.ErrorIs(t, runRead(cmd, []string{writePhoto(t)}), reading.ErrInvalidProfile)

	readGender = "female"
	notImage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0o600))
	assert.Error(t, runRead(cmd, []string{notImage}))
}

func TestRenderCmd(t *testing.T) {
	setup(t, &stubOracle{})
	dir := t.TempDir()

	// bare model output, with code fence
	raw := "```json\n{\"overall\":\"bright\",\"archetype\":{\"name\":\"The Sage\"},\"heartLine\":{\"points\":[{\"x\":1.5,\"y\":0.5}]}}\n```"
	src := filepath.Join(dir, "model.txt")
	require.NoError(t, os.WriteFile(src, []byte(raw), 0o600))

	renderImage = writePhoto(t)
	cmd, out := newCmd()
	require.NoError(t, runRender(cmd, []string{src}))
	assert.Contains(t, out.String(), "The Sage")
	assert.Contains(t, out.String(), "data:image/png;base64,")

	// stored reading
	stored, err := json.Marshal(reading.Reading{
		ID:       "r1",
		Profile:  reading.Profile{Age: 70, Gender: reading.GenderFemale},
		Analysis: reading.PalmAnalysis{Archetype: reading.Archetype{Name: "The Elder"}},
	})
	require.NoError(t, err)
	src = filepath.Join(dir, "stored.json")
	require.NoError(t, os.WriteFile(src, stored, 0o600))

	renderImage, renderFormat = "", formatText
	cmd, out = newCmd()
	require.NoError(t, runRender(cmd, []string{src}))
	assert.Contains(t, out.String(), "The Elder")
	assert.Contains(t, out.String(), "age 70")
}

func TestRenderCmd_Malformed(t *testing.T) {
	setup(t, &stubOracle{})
	src := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(src, []byte("{not json"), 0o600))

	cmd, _ := newCmd()
	assert.ErrorIs(t, runRender(cmd, []string{src}), domai.ErrMalformedResponse)
}

func TestHistoryCmds(t *testing.T) {
	app := setup(t, &stubOracle{})
	ctx := context.Background()
	for _, id := range []reading.ReadingID{"a1", "b2"} {
		require.NoError(t, app.History.Repo.Save(ctx, &reading.Reading{
			ID:       id,
			Profile:  reading.DefaultProfile(),
			Analysis: reading.PalmAnalysis{Archetype: reading.Archetype{Name: "Seer " + string(id)}},
		}))
	}

	cmd, out := newCmd()
	require.NoError(t, runHistoryList(cmd, nil))
	assert.Contains(t, out.String(), "Seer a1")
	assert.Contains(t, out.String(), "2 total")

	historyFormat = formatJSON
	cmd, out = newCmd()
	require.NoError(t, runHistoryShow(cmd, []string{"b2"}))
	assert.Contains(t, out.String(), `"id": "b2"`)

	cmd, _ = newCmd()
	assert.ErrorIs(t, runHistoryShow(cmd, []string{"nope"}), reading.ErrNotFound)

	cmd, out = newCmd()
	require.NoError(t, runHistoryDelete(cmd, []string{"a1"}))
	assert.Contains(t, out.String(), "deleted a1")

	cmd, _ = newCmd()
	assert.Error(t, runHistoryClear(cmd, nil))

	historyYes = true
	cmd, out = newCmd()
	require.NoError(t, runHistoryClear(cmd, nil))
	assert.Contains(t, out.String(), "cleared 1 readings")
}
