package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"steprecorder/internal/dom"
	"steprecorder/internal/models"
)

// FrameTopic tags messages posted from nested frames to the top frame.
const FrameTopic = "steprecorder/frame-event"

// ErrInvalidFrameMessage is returned for messages that fail validation.
var ErrInvalidFrameMessage = errors.New("invalid frame message")

const (
	FrameEventClick = "click"
	FrameEventInput = "input"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FrameMessage is what a nested frame sends to the top frame. It carries
// only plain data; element references never cross the boundary.
type FrameMessage struct {
	Topic     string             `json:"topic"`
	Sender    string             `json:"sender"`
	EventType string             `json:"eventType"`
	Element   models.ElementInfo `json:"element"`
	Position  *Point             `json:"position,omitempty"`
	Value     string             `json:"value,omitempty"`
}

func (m FrameMessage) Validate() error {
	if m.Topic != FrameTopic {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidFrameMessage, m.Topic)
	}
	if m.Sender == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidFrameMessage)
	}
	switch m.EventType {
	case FrameEventClick, FrameEventInput:
	default:
		return fmt.Errorf("%w: unsupported event type %q", ErrInvalidFrameMessage, m.EventType)
	}
	if m.Element.Description == "" {
		return fmt.Errorf("%w: missing element description", ErrInvalidFrameMessage)
	}
	return nil
}

// DecodeFrameMessage parses and validates a raw message.
func DecodeFrameMessage(raw []byte) (FrameMessage, error) {
	var m FrameMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return FrameMessage{}, fmt.Errorf("%w: %v", ErrInvalidFrameMessage, err)
	}
	if err := m.Validate(); err != nil {
		return FrameMessage{}, err
	}
	return m, nil
}

// PackageClick builds the message a nested frame sends for a click.
func PackageClick(sender string, target dom.Element, pos Point) FrameMessage {
	return FrameMessage{
		Topic:     FrameTopic,
		Sender:    sender,
		EventType: FrameEventClick,
		Element:   elementInfo(target),
		Position:  &pos,
	}
}

// PackageInput builds the message for a committed value. Password values
// are masked before they leave the frame.
func PackageInput(sender string, target dom.Element, value string) FrameMessage {
	return FrameMessage{
		Topic:     FrameTopic,
		Sender:    sender,
		EventType: FrameEventInput,
		Element:   elementInfo(target),
		Value:     maskedValue(target, value),
	}
}

// Relay is the top-frame side: it turns frame messages into steps using
// the top frame's session and sink.
type Relay struct {
	normalizer *Normalizer
}

func NewRelay(n *Normalizer) *Relay {
	return &Relay{normalizer: n}
}

// Receive validates msg and records the equivalent step, marked as coming
// from an iframe. Messages arriving while idle are dropped.
func (r *Relay) Receive(ctx context.Context, msg FrameMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	opts, recording := r.normalizer.session.Active()
	if !recording {
		return nil
	}

	var p *pendingStep
	switch msg.EventType {
	case FrameEventClick:
		p = newClickStep(opts.Language, msg.Element.Description)
	case FrameEventInput:
		p = newInputStep(opts.Language, msg.Value, msg.Element.Description)
	}
	p.inFrame()
	if opts.CaptureSelectors {
		p.locateWith(msg.Element.Selectors)
	}
	return r.normalizer.emit(ctx, p)
}
