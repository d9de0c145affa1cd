package models

import (
	"time"
)

// ActionKind is the language-independent verb behind a step.
type ActionKind string

const (
	ActionClick    ActionKind = "click"
	ActionInput    ActionKind = "input"
	ActionNavigate ActionKind = "navigate"
)

// PasswordMask replaces the value of password fields in step descriptions.
const PasswordMask = "********"

type Selectors struct {
	XPath string `json:"xpath"`
	CSS   string `json:"css"`
}

// Step is one recorded user action. Steps are values: once committed they
// are never edited, only appended to or cleared from a session.
type Step struct {
	Kind        ActionKind `json:"kind,omitempty"`
	Action      string     `json:"action"`      // localized verb, e.g. "Click", "Klick"
	Description string     `json:"description"` // action + target (+ value for inputs)
	Selectors   *Selectors `json:"selectors,omitempty"`
	Screenshot  string     `json:"screenshot,omitempty"` // data URI
	Timestamp   string     `json:"timestamp"`
}

// HasCSS reports whether the step carries a usable CSS selector.
func (s Step) HasCSS() bool {
	return s.Selectors != nil && s.Selectors.CSS != ""
}

type RecordingOptions struct {
	CaptureScreenshots bool   `json:"captureScreenshots"`
	RecordScreen       bool   `json:"recordScreen"`
	CaptureSelectors   bool   `json:"captureSelectors"`
	Language           string `json:"language"`
}

func DefaultRecordingOptions() RecordingOptions {
	return RecordingOptions{
		CaptureScreenshots: true,
		RecordScreen:       false,
		CaptureSelectors:   true,
		Language:           "en",
	}
}

type SystemInfo struct {
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	Resolution string `json:"resolution"`
	Timestamp  string `json:"timestamp"`
}

// RecordingSession is the single recording's accumulated state.
type RecordingSession struct {
	IsRecording bool             `json:"isRecording"`
	Options     RecordingOptions `json:"options"`
	Steps       []Step           `json:"steps"`
}

// ElementInfo is the plain-data view of an element that may cross a frame
// boundary: no element references, only what a step needs.
type ElementInfo struct {
	Description string    `json:"description"`
	Selectors   Selectors `json:"selectors"`
}

// KVEntry backs the persisted key-value store.
type KVEntry struct {
	Key       string    `json:"key" gorm:"column:entry_key;primaryKey;size:64"`
	Value     string    `json:"value" gorm:"type:longtext"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// Timestamp layouts mirroring the browser's locale strings.
const (
	StepTimeLayout    = "3:04:05 PM"
	SessionTimeLayout = "1/2/2006, 3:04:05 PM"
)
