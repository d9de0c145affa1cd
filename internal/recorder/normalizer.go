package recorder

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"steprecorder/internal/dom"
	"steprecorder/internal/models"
)

// DefaultScreenshotTimeout bounds how long a step waits for its screenshot.
const DefaultScreenshotTimeout = 3 * time.Second

// StepSink receives committed steps. The session coordinator implements it.
type StepSink interface {
	Record(ctx context.Context, step models.Step) error
}

// ScreenshotCapturer returns PNG bytes of the visible page. The region is
// a hint for the area of interest; implementations may ignore it.
type ScreenshotCapturer interface {
	Capture(ctx context.Context, region Region) ([]byte, error)
}

type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ClickEvent struct {
	Target dom.Element
	Region Region
}

// InputEvent is a committed value change on a form control.
type InputEvent struct {
	Target dom.Element
	Value  string
	Region Region
}

type NavigateEvent struct {
	URL string
}

// Normalizer turns raw page events into steps while its session is
// recording. Events received while idle are ignored.
type Normalizer struct {
	session *LocalSession
	sink    StepSink
	shots   ScreenshotCapturer
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewNormalizer wires a normalizer to its session and sink. shots may be nil,
// in which case steps never carry screenshots.
func NewNormalizer(session *LocalSession, sink StepSink, shots ScreenshotCapturer, timeout time.Duration, logger *zap.Logger) *Normalizer {
	if timeout <= 0 {
		timeout = DefaultScreenshotTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		session: session,
		sink:    sink,
		shots:   shots,
		timeout: timeout,
		logger:  logger.Named("normalizer"),
		now:     time.Now,
	}
}

func (n *Normalizer) Session() *LocalSession {
	return n.session
}

func (n *Normalizer) OnStart(opts models.RecordingOptions) {
	n.session.Begin(opts)
}

func (n *Normalizer) OnStop() {
	n.session.End()
}

func (n *Normalizer) OnClick(ctx context.Context, ev ClickEvent) error {
	opts, recording := n.session.Active()
	if !recording || ev.Target == nil {
		return nil
	}
	p := newClickStep(opts.Language, dom.Describe(ev.Target))
	if opts.CaptureSelectors {
		p.locate(ev.Target)
	}
	return n.finish(ctx, p, opts, ev.Region)
}

func (n *Normalizer) OnInput(ctx context.Context, ev InputEvent) error {
	opts, recording := n.session.Active()
	if !recording || ev.Target == nil {
		return nil
	}
	p := newInputStep(opts.Language, maskedValue(ev.Target, ev.Value), dom.Describe(ev.Target))
	if opts.CaptureSelectors {
		p.locate(ev.Target)
	}
	return n.finish(ctx, p, opts, ev.Region)
}

// OnNavigate records a page unload. Navigation steps never carry
// selectors or screenshots.
func (n *Normalizer) OnNavigate(ctx context.Context, ev NavigateEvent) error {
	opts, recording := n.session.Active()
	if !recording {
		return nil
	}
	return n.emit(ctx, newNavigateStep(opts.Language, ev.URL))
}

func (n *Normalizer) finish(ctx context.Context, p *pendingStep, opts models.RecordingOptions, region Region) error {
	if opts.CaptureScreenshots && n.shots != nil {
		p.enrich(n.screenshot(ctx, region))
		if !n.session.IsRecording() {
			n.logger.Debug("Discarding step completed after stop", zap.String("description", p.description))
			return nil
		}
	}
	return n.emit(ctx, p)
}

func (n *Normalizer) emit(ctx context.Context, p *pendingStep) error {
	step := p.commit(n.now())
	if err := n.sink.Record(ctx, step); err != nil {
		return fmt.Errorf("record step: %w", err)
	}
	return nil
}

// screenshot waits at most n.timeout for the capturer. Failures yield an
// empty string so the step is still recorded.
func (n *Normalizer) screenshot(ctx context.Context, region Region) string {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := n.shots.Capture(ctx, region)
		ch <- result{data, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			n.logger.Warn("Screenshot capture failed", zap.Error(r.err))
			return ""
		}
		if len(r.data) == 0 {
			return ""
		}
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString(r.data)
	case <-ctx.Done():
		n.logger.Warn("Screenshot capture timed out", zap.Duration("timeout", n.timeout))
		return ""
	}
}
