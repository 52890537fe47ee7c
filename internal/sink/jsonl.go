// Package sink provides destinations for the orchestrator's event stream.
package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/domain"
)

var _ domain.EventSink = (*JSONL)(nil)

// JSONL appends one JSON object per event to a log file, the same shape the
// generation runs have always been archived in.
type JSONL struct {
	mu     sync.Mutex
	f      *os.File
	enc    *json.Encoder
	logger *zap.Logger
}

// NewJSONL opens (creating directories as needed) the event log for append.
func NewJSONL(path string, logger *zap.Logger) (*JSONL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONL{f: f, enc: json.NewEncoder(f), logger: logger}, nil
}

// Emit writes the event as one line. Write failures are logged and dropped;
// the event stream must never fail a job.
func (s *JSONL) Emit(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(ev); err != nil {
		s.logger.Warn("Failed to append event to log", zap.Error(err))
	}
}

// Close flushes and closes the underlying file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
