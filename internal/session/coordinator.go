// Package session owns the authoritative recording state. Every mutation is
// serialized through one goroutine, so read-modify-write cycles on the store
// never interleave.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"steprecorder/internal/i18n"
	"steprecorder/internal/models"
	"steprecorder/pkg/database"
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrClosed           = errors.New("session coordinator closed")
)

// Store keys.
const (
	KeySteps           = "steps"
	KeyIsRecording     = "isRecording"
	KeyOptions         = "options"
	KeySystemInfo      = "systemInfo"
	KeyScreenRecording = "screenRecording"
)

// PageController is a page context as seen by the coordinator.
type PageController interface {
	ID() string
	Start(ctx context.Context, opts models.RecordingOptions) error
	Stop(ctx context.Context) error
}

// ScreenCapture records the screen between Start and Stop. Stop returns a
// reference to the stored artifact, or "" when nothing was captured.
type ScreenCapture interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (string, error)
}

// SystemInfoFunc supplies environment details when none are stored yet.
type SystemInfoFunc func(ctx context.Context) (models.SystemInfo, error)

type Option func(*Coordinator)

func WithScreenCapture(sc ScreenCapture) Option {
	return func(c *Coordinator) { c.screen = sc }
}

func WithSystemInfo(fn SystemInfoFunc) Option {
	return func(c *Coordinator) { c.sysInfo = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

type request struct {
	ctx   context.Context
	fn    func(ctx context.Context) error
	reply chan error
}

type Coordinator struct {
	store   database.Store
	logger  *zap.Logger
	now     func() time.Time
	screen  ScreenCapture
	sysInfo SystemInfoFunc

	requests  chan request
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the run loop.
	recording    bool
	options      models.RecordingOptions
	screenActive bool
	pages        map[string]PageController

	subsMu  sync.Mutex
	subs    map[uint64]chan models.Step
	nextSub uint64
}

// New restores the recording flag and options from store and starts the
// coordinator loop. Call Close to stop it.
func New(ctx context.Context, store database.Store, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		store:    store,
		logger:   logger.Named("session"),
		now:      time.Now,
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		options:  models.DefaultRecordingOptions(),
		pages:    make(map[string]PageController),
		subs:     make(map[uint64]chan models.Step),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.restore(ctx)

	go c.run()
	return c
}

func (c *Coordinator) restore(ctx context.Context) {
	raw, err := c.store.Get(ctx, KeyIsRecording, KeyOptions)
	if err != nil {
		c.logger.Warn("Failed to restore session state, starting idle", zap.Error(err))
		return
	}
	decode(c.logger, raw, KeyIsRecording, &c.recording)
	decode(c.logger, raw, KeyOptions, &c.options)
	if c.recording {
		c.logger.Info("Resuming recording from persisted state")
	}
}

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		select {
		case req := <-c.requests:
			req.reply <- c.call(req)
		case <-c.quit:
			return
		}
	}
}

func (c *Coordinator) call(req request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered from panic in session request", zap.Any("panic", r))
			err = fmt.Errorf("session request panicked: %v", r)
		}
	}()
	return req.fn(req.ctx)
}

// exec runs fn on the coordinator goroutine and waits for its result.
func (c *Coordinator) exec(ctx context.Context, fn func(ctx context.Context) error) error {
	req := request{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-c.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins a recording with opts and tells every page context.
func (c *Coordinator) Start(ctx context.Context, opts models.RecordingOptions) error {
	return c.exec(ctx, func(ctx context.Context) error {
		if c.recording {
			return ErrAlreadyRecording
		}
		opts.Language = i18n.Normalize(opts.Language)

		info := c.loadSystemInfo(ctx)
		if info.Browser == "" && c.sysInfo != nil {
			if fresh, err := c.sysInfo(ctx); err != nil {
				c.logger.Warn("Failed to read system info", zap.Error(err))
			} else {
				info = fresh
			}
		}
		info.Timestamp = c.now().Format(models.SessionTimeLayout)

		if err := c.store.Set(ctx, map[string]any{
			KeyIsRecording: true,
			KeyOptions:     opts,
			KeySystemInfo:  info,
		}); err != nil {
			return fmt.Errorf("failed to persist recording state: %w", err)
		}
		c.recording = true
		c.options = opts

		c.broadcast(ctx, "start", func(ctx context.Context, p PageController) error {
			return p.Start(ctx, opts)
		})

		if opts.RecordScreen && c.screen != nil {
			if err := c.screen.Start(ctx); err != nil {
				c.logger.Warn("Screen recording unavailable", zap.Error(err))
			} else {
				c.screenActive = true
			}
		}

		c.logger.Info("Recording started",
			zap.String("language", opts.Language),
			zap.Bool("screenshots", opts.CaptureScreenshots),
			zap.Bool("selectors", opts.CaptureSelectors),
			zap.Bool("screen", opts.RecordScreen),
			zap.Int("pages", len(c.pages)))
		return nil
	})
}

// Stop ends the recording. Recorded steps are kept.
func (c *Coordinator) Stop(ctx context.Context) error {
	return c.exec(ctx, func(ctx context.Context) error {
		if !c.recording {
			return ErrNotRecording
		}
		c.recording = false

		c.broadcast(ctx, "stop", func(ctx context.Context, p PageController) error {
			return p.Stop(ctx)
		})

		values := map[string]any{KeyIsRecording: false}
		if c.screenActive {
			c.screenActive = false
			artifact, err := c.screen.Stop(ctx)
			if err != nil {
				c.logger.Warn("Failed to finish screen recording", zap.Error(err))
			} else if artifact != "" {
				values[KeyScreenRecording] = artifact
			}
		}

		if err := c.store.Set(ctx, values); err != nil {
			return fmt.Errorf("failed to persist recording state: %w", err)
		}
		c.logger.Info("Recording stopped")
		return nil
	})
}

// Clear removes all recorded steps. It is safe to call at any time.
func (c *Coordinator) Clear(ctx context.Context) error {
	return c.exec(ctx, func(ctx context.Context) error {
		if err := c.store.Set(ctx, map[string]any{KeySteps: []models.Step{}}); err != nil {
			return fmt.Errorf("failed to clear steps: %w", err)
		}
		c.logger.Info("Steps cleared")
		return nil
	})
}

// Record appends a committed step. Steps arriving while idle are dropped.
func (c *Coordinator) Record(ctx context.Context, step models.Step) error {
	return c.exec(ctx, func(ctx context.Context) error {
		if !c.recording {
			c.logger.Debug("Dropping step received while idle", zap.String("description", step.Description))
			return nil
		}
		raw, err := c.store.Get(ctx, KeySteps)
		if err != nil {
			return fmt.Errorf("failed to read steps: %w", err)
		}
		var steps []models.Step
		decode(c.logger, raw, KeySteps, &steps)
		steps = append(steps, step)

		if err := c.store.Set(ctx, map[string]any{KeySteps: steps}); err != nil {
			return fmt.Errorf("failed to persist step: %w", err)
		}
		c.publish(step)
		return nil
	})
}

// Snapshot returns the current session. Store read failures yield an empty
// step list.
func (c *Coordinator) Snapshot(ctx context.Context) (models.RecordingSession, error) {
	var out models.RecordingSession
	err := c.exec(ctx, func(ctx context.Context) error {
		out = c.snapshot(ctx)
		return nil
	})
	return out, err
}

// Watch is Snapshot plus Subscribe taken together on the coordinator loop,
// so the feed carries exactly the steps recorded after the snapshot. The
// subscription also ends when ctx is done.
func (c *Coordinator) Watch(ctx context.Context, buffer int) (models.RecordingSession, <-chan models.Step, func(), error) {
	var (
		out    models.RecordingSession
		feed   <-chan models.Step
		cancel func()
	)
	err := c.exec(ctx, func(ctx context.Context) error {
		out = c.snapshot(ctx)
		var unsubscribe func()
		feed, unsubscribe = c.Subscribe(buffer)
		stop := context.AfterFunc(ctx, unsubscribe)
		cancel = func() {
			stop()
			unsubscribe()
		}
		return nil
	})
	if err != nil {
		return models.RecordingSession{}, nil, nil, err
	}
	return out, feed, cancel, nil
}

func (c *Coordinator) snapshot(ctx context.Context) models.RecordingSession {
	out := models.RecordingSession{
		IsRecording: c.recording,
		Options:     c.options,
		Steps:       []models.Step{},
	}
	raw, err := c.store.Get(ctx, KeySteps)
	if err != nil {
		c.logger.Warn("Failed to read steps", zap.Error(err))
		return out
	}
	decode(c.logger, raw, KeySteps, &out.Steps)
	if out.Steps == nil {
		out.Steps = []models.Step{}
	}
	return out
}

func (c *Coordinator) SystemInfo(ctx context.Context) (models.SystemInfo, error) {
	var info models.SystemInfo
	err := c.exec(ctx, func(ctx context.Context) error {
		info = c.loadSystemInfo(ctx)
		return nil
	})
	return info, err
}

func (c *Coordinator) SetSystemInfo(ctx context.Context, info models.SystemInfo) error {
	return c.exec(ctx, func(ctx context.Context) error {
		if err := c.store.Set(ctx, map[string]any{KeySystemInfo: info}); err != nil {
			return fmt.Errorf("failed to persist system info: %w", err)
		}
		return nil
	})
}

// ScreenRecording returns the reference to the last screen recording.
func (c *Coordinator) ScreenRecording(ctx context.Context) (string, error) {
	var ref string
	err := c.exec(ctx, func(ctx context.Context) error {
		raw, err := c.store.Get(ctx, KeyScreenRecording)
		if err != nil {
			c.logger.Warn("Failed to read screen recording", zap.Error(err))
			return nil
		}
		decode(c.logger, raw, KeyScreenRecording, &ref)
		return nil
	})
	return ref, err
}

// Register adds a page context. A page joining mid-recording starts at once
// with the session's options.
func (c *Coordinator) Register(ctx context.Context, p PageController) error {
	return c.exec(ctx, func(ctx context.Context) error {
		c.pages[p.ID()] = p
		if c.recording {
			if err := p.Start(ctx, c.options); err != nil {
				return fmt.Errorf("failed to start page %s: %w", p.ID(), err)
			}
		}
		return nil
	})
}

func (c *Coordinator) Unregister(ctx context.Context, id string) error {
	return c.exec(ctx, func(ctx context.Context) error {
		delete(c.pages, id)
		return nil
	})
}

// Pages lists registered page IDs in sorted order.
func (c *Coordinator) Pages(ctx context.Context) ([]string, error) {
	var ids []string
	err := c.exec(ctx, func(ctx context.Context) error {
		ids = make([]string, 0, len(c.pages))
		for id := range c.pages {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil
	})
	return ids, err
}

// Subscribe returns a feed of newly recorded steps. Slow subscribers miss
// steps rather than block recording. The cancel func closes the channel.
func (c *Coordinator) Subscribe(buffer int) (<-chan models.Step, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.Step, buffer)

	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subsMu.Unlock()

	return ch, func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Coordinator) publish(step models.Step) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- step:
		default:
			c.logger.Warn("Subscriber too slow, dropping step", zap.Uint64("subscriber", id))
		}
	}
}

// Close stops the coordinator loop and closes all subscriber feeds.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.quit)
		<-c.done

		c.subsMu.Lock()
		for id, ch := range c.subs {
			delete(c.subs, id)
			close(ch)
		}
		c.subsMu.Unlock()
	})
}

func (c *Coordinator) broadcast(ctx context.Context, what string, fn func(context.Context, PageController) error) {
	var g errgroup.Group
	g.SetLimit(8)
	for _, p := range c.pages {
		g.Go(func() error {
			if err := fn(ctx, p); err != nil {
				c.logger.Warn("Page did not acknowledge "+what, zap.String("page_id", p.ID()), zap.Error(err))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Warn("Broadcast incomplete", zap.String("event", what), zap.Error(err))
	}
}

func (c *Coordinator) loadSystemInfo(ctx context.Context) models.SystemInfo {
	var info models.SystemInfo
	raw, err := c.store.Get(ctx, KeySystemInfo)
	if err != nil {
		c.logger.Warn("Failed to read system info", zap.Error(err))
		return info
	}
	decode(c.logger, raw, KeySystemInfo, &info)
	return info
}

// decode fills dst from raw[key], leaving dst untouched when the key is
// missing or malformed.
func decode(logger *zap.Logger, raw map[string]json.RawMessage, key string, dst any) {
	v, ok := raw[key]
	if !ok || len(v) == 0 {
		return
	}
	if err := json.Unmarshal(v, dst); err != nil {
		logger.Warn("Ignoring malformed stored value", zap.String("key", key), zap.Error(err))
	}
}
