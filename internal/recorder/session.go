package recorder

import (
	"sync"

	"steprecorder/internal/i18n"
	"steprecorder/internal/models"
)

// LocalSession is a page context's view of the recording: whether it is
// active and the options fixed when it started. It is owned by one page
// context and threaded into its normalizer and relay.
type LocalSession struct {
	mu        sync.RWMutex
	recording bool
	options   models.RecordingOptions
}

func NewLocalSession() *LocalSession {
	return &LocalSession{options: models.DefaultRecordingOptions()}
}

func (s *LocalSession) Begin(opts models.RecordingOptions) {
	opts.Language = i18n.Normalize(opts.Language)
	s.mu.Lock()
	s.recording = true
	s.options = opts
	s.mu.Unlock()
}

func (s *LocalSession) End() {
	s.mu.Lock()
	s.recording = false
	s.mu.Unlock()
}

// Active returns the cached options and whether recording is on.
func (s *LocalSession) Active() (models.RecordingOptions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options, s.recording
}

func (s *LocalSession) IsRecording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recording
}
