package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/verdantchat/gatekeeper/internal/models"
	pkglogger "github.com/verdantchat/gatekeeper/pkg/logger"
)

// TranscriptLog appends completed quiz attempts to one JSON file per user.
// It is observability-only: callers are expected to log and swallow its
// errors, a transcript write must never abort a quiz.
type TranscriptLog struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewTranscriptLog creates the log rooted at dir, creating it if needed.
func NewTranscriptLog(dir string, logger *slog.Logger) (*TranscriptLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	return &TranscriptLog{dir: dir, logger: logger}, nil
}

// Append adds one attempt to the user's transcript file. A corrupt existing
// file is replaced by a fresh list rather than failing the append.
func (t *TranscriptLog) Append(username string, attempt models.TranscriptAttempt) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path := filepath.Join(t.dir, pkglogger.SafeFilename(username)+".json")

	var attempts []models.TranscriptAttempt
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First attempt for this user
	case err != nil:
		return fmt.Errorf("read transcript %s: %w", path, err)
	default:
		if err := json.Unmarshal(raw, &attempts); err != nil {
			t.logger.Warn("transcript unparseable, starting fresh",
				slog.String("path", path),
				slog.Any("error", err))
			attempts = nil
		}
	}

	attempts = append(attempts, attempt)

	data, err := json.MarshalIndent(attempts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript %s: %w", path, err)
	}
	return nil
}
