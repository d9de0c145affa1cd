package recorder

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"steprecorder/internal/dom"
)

// BindingName is the DevTools binding the capture script reports through.
const BindingName = "__stepRecorder"

//go:embed capture.js
var captureTemplate string

// CaptureScript is evaluated on every new document of a page context.
func CaptureScript() string {
	return strings.NewReplacer("__BINDING__", BindingName, "__TOPIC__", FrameTopic).Replace(captureTemplate)
}

// envelope is one binding call from the page.
type envelope struct {
	Kind    string        `json:"kind"`
	Element *dom.Snapshot `json:"element,omitempty"`
	Value   string        `json:"value,omitempty"`
	URL     string        `json:"url,omitempty"`
	Region  Region        `json:"region"`
	Frame   *rawFrame     `json:"frame,omitempty"`
}

// rawFrame is what a nested frame posts to the top frame: the element as a
// snapshot, before it is described and located.
type rawFrame struct {
	Topic     string        `json:"topic"`
	Sender    string        `json:"sender"`
	EventType string        `json:"eventType"`
	Element   *dom.Snapshot `json:"element"`
	Position  *Point        `json:"position,omitempty"`
	Value     string        `json:"value,omitempty"`
}

// dispatcher routes decoded binding payloads to a normalizer and relay.
type dispatcher struct {
	normalizer *Normalizer
	relay      *Relay
}

func (d *dispatcher) dispatch(ctx context.Context, payload string) error {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return fmt.Errorf("decode binding payload: %w", err)
	}

	switch env.Kind {
	case "click":
		if env.Element == nil {
			return fmt.Errorf("click event without element")
		}
		return d.normalizer.OnClick(ctx, ClickEvent{Target: env.Element, Region: env.Region})
	case "input":
		if env.Element == nil {
			return fmt.Errorf("input event without element")
		}
		return d.normalizer.OnInput(ctx, InputEvent{Target: env.Element, Value: env.Value, Region: env.Region})
	case "navigate":
		return d.normalizer.OnNavigate(ctx, NavigateEvent{URL: env.URL})
	case "frame":
		if env.Frame == nil {
			return fmt.Errorf("%w: empty frame payload", ErrInvalidFrameMessage)
		}
		msg, err := packageFrame(*env.Frame)
		if err != nil {
			return err
		}
		return d.relay.Receive(ctx, msg)
	default:
		return fmt.Errorf("unknown event kind %q", env.Kind)
	}
}

func packageFrame(raw rawFrame) (FrameMessage, error) {
	if raw.Topic != FrameTopic {
		return FrameMessage{}, fmt.Errorf("%w: unexpected topic %q", ErrInvalidFrameMessage, raw.Topic)
	}
	if raw.Element == nil {
		return FrameMessage{}, fmt.Errorf("%w: missing element", ErrInvalidFrameMessage)
	}

	var msg FrameMessage
	switch raw.EventType {
	case FrameEventClick:
		var pos Point
		if raw.Position != nil {
			pos = *raw.Position
		}
		msg = PackageClick(raw.Sender, raw.Element, pos)
	case FrameEventInput:
		msg = PackageInput(raw.Sender, raw.Element, raw.Value)
	default:
		return FrameMessage{}, fmt.Errorf("%w: unsupported event type %q", ErrInvalidFrameMessage, raw.EventType)
	}
	return msg, nil
}
