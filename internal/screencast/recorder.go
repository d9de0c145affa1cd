// Package screencast records a page as an animated GIF by sampling
// screenshots at a fixed interval.
package screencast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

var ErrAlreadyRunning = errors.New("screen recording already running")

// FrameSource returns one PNG-encoded frame.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

type FrameSourceFunc func(ctx context.Context) ([]byte, error)

func (f FrameSourceFunc) Frame(ctx context.Context) ([]byte, error) { return f(ctx) }

type Config struct {
	Interval  time.Duration
	Dir       string
	MaxFrames int // capture stops growing past this
	MaxWidth  int // frames wider than this are scaled down
}

type frame struct {
	at   time.Time
	data []byte
}

type Recorder struct {
	source FrameSource
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	frames []frame
}

func NewRecorder(source FrameSource, cfg Config, logger *zap.Logger) *Recorder {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = 1200
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 1280
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{source: source, cfg: cfg, logger: logger.Named("screencast"), now: time.Now}
}

// Start grabs a first frame, so an unavailable source fails here, then keeps
// sampling in the background until Stop.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyRunning
	}

	first, err := r.source.Frame(ctx)
	if err != nil {
		return fmt.Errorf("capture first frame: %w", err)
	}
	r.frames = []frame{{at: r.now(), data: first}}

	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)

	r.logger.Info("Screen recording started", zap.Duration("interval", r.cfg.Interval))
	return nil
}

func (r *Recorder) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fctx, cancel := context.WithTimeout(ctx, 4*r.cfg.Interval)
			data, err := r.source.Frame(fctx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Debug("Skipping frame", zap.Error(err))
				}
				continue
			}

			r.mu.Lock()
			if len(r.frames) < r.cfg.MaxFrames {
				r.frames = append(r.frames, frame{at: r.now(), data: data})
			}
			r.mu.Unlock()
		}
	}
}

// Running reports whether a capture loop is active.
func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Stop halts sampling and writes the GIF, returning its path. Buffered
// frames are released whether or not encoding succeeds. Stopping an idle
// recorder returns "".
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return "", nil
	}

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		r.mu.Lock()
		r.frames = nil
		r.mu.Unlock()
		return "", ctx.Err()
	}

	r.mu.Lock()
	frames := r.frames
	r.frames = nil
	r.mu.Unlock()

	if len(frames) == 0 {
		return "", nil
	}
	data, err := encodeGIF(frames, r.cfg.MaxWidth)
	if err != nil {
		return "", fmt.Errorf("encode screen recording: %w", err)
	}

	started := frames[0].at
	dir := filepath.Join(r.cfg.Dir, started.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create recordings directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("screen_%s_%s.gif", started.Format("150405"), uuid.NewString()[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screen recording: %w", err)
	}

	r.logger.Info("Screen recording saved", zap.String("path", path), zap.Int("frames", len(frames)))
	return path, nil
}

func encodeGIF(frames []frame, maxWidth int) ([]byte, error) {
	out := &gif.GIF{}
	for i, f := range frames {
		delay := 2 * time.Second // hold the last frame
		if i < len(frames)-1 {
			delay = frames[i+1].at.Sub(f.at)
		}
		out.Delay = append(out.Delay, int(delay/(10*time.Millisecond)))

		img, err := png.Decode(bytes.NewReader(f.data))
		if err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", i, err)
		}
		out.Image = append(out.Image, toPaletted(img, maxWidth))
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toPaletted(img image.Image, maxWidth int) *image.Paletted {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxWidth {
		h = h * maxWidth / w
		if h < 1 {
			h = 1
		}
		w = maxWidth
	}
	rect := image.Rect(0, 0, w, h)

	var src image.Image = img
	if w != b.Dx() {
		scaled := image.NewRGBA(rect)
		draw.ApproxBiLinear.Scale(scaled, rect, img, b, draw.Src, nil)
		src = scaled
	}
	p := image.NewPaletted(rect, palette.WebSafe)
	draw.FloydSteinberg.Draw(p, rect, src, src.Bounds().Min)
	return p
}
