package session

import "time"

// LoadingInterval is how long each loading phrase stays on screen.
const LoadingInterval = 2 * time.Second

const initialLoadingText = "Observing the alignment of the stars..."

var loadingTexts = []string{
	"Connecting to the destiny engine...",
	"Reading the energy of the mounts...",
	"Tracing the three major lines...",
	"Computing the yearly fortune chart...",
	"Composing guidance for the soul...",
}

// LoadingText returns the phrase to show at now, or "" when not analyzing.
func (s *Session) LoadingText(now time.Time) string {
	if s.State != StateAnalyzing {
		return ""
	}
	elapsed := now.Sub(s.AnalyzingSince)
	if elapsed < LoadingInterval {
		return initialLoadingText
	}
	i := int(elapsed/LoadingInterval) - 1
	return loadingTexts[i%len(loadingTexts)]
}
