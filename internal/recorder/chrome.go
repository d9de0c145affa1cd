package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"steprecorder/internal/config"
	"steprecorder/internal/models"
	"steprecorder/pkg/chrome"
)

var (
	// ErrBrowserClosed is returned when opening pages on a closed browser.
	ErrBrowserClosed = errors.New("browser closed")
	ErrNoPage        = errors.New("no page open")
)

const (
	pageEventQueue   = 256
	pageDrainTimeout = 5 * time.Second
	navigateTimeout  = 30 * time.Second
)

// Browser owns one Chrome process. Pages are opened as tabs on it.
type Browser struct {
	cfg    config.ChromeConfig
	logger *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	pages  []*PageContext // open order
}

func NewBrowser(cfg config.ChromeConfig, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{cfg: cfg, logger: logger.Named("browser")}
}

// Launch starts Chrome if it is not running yet.
func (b *Browser) Launch() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.launchLocked()
}

func (b *Browser) launchLocked() error {
	if b.closed {
		return ErrBrowserClosed
	}
	if b.ctx != nil {
		return nil
	}

	execPath := chrome.ResolvePath(b.cfg)
	if execPath == "" {
		return fmt.Errorf("Chrome browser not found. Please install Google Chrome or Chromium")
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), chrome.AllocatorOptions(b.cfg, execPath)...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(b.logger.Sugar().Debugf))
	if err := chromedp.Run(ctx); err != nil {
		ctxCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	b.ctx = ctx
	b.cancel = func() {
		ctxCancel()
		allocCancel()
	}
	b.logger.Info("Browser started", zap.String("exec_path", execPath), zap.Bool("headless", b.cfg.HeadlessMode))
	return nil
}

// PageOptions describes a tab to open.
type PageOptions struct {
	URL    string
	Device string // emulation profile name, empty for the browser default
}

// OpenPage opens a new tab, instruments it and navigates to opts.URL. Steps
// from the page flow into sink.
func (b *Browser) OpenPage(ctx context.Context, opts PageOptions, sink StepSink, screenshotTimeout time.Duration) (*PageContext, error) {
	var emulate chromedp.Action = chromedp.ActionFunc(func(context.Context) error { return nil })
	if opts.Device != "" {
		dev, err := chrome.LookupDevice(opts.Device)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, opts.Device)
		}
		emulate = chromedp.Emulate(dev)
	}

	b.mu.Lock()
	if err := b.launchLocked(); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	parent := b.ctx
	b.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(parent)
	p := newPageContext(tabCtx, cancel, sink, screenshotTimeout, b.logger)

	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(c context.Context) error {
		if err := runtime.AddBinding(BindingName).Do(c); err != nil {
			return fmt.Errorf("failed to add binding %q: %w", BindingName, err)
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(CaptureScript()).Do(c); err != nil {
			return fmt.Errorf("failed to inject capture script: %w", err)
		}
		return nil
	}), emulate)
	if err != nil {
		cancel()
		return nil, err
	}

	go p.loop()

	if url := opts.URL; url != "" {
		navCtx, navCancel := context.WithTimeout(tabCtx, navigateTimeout)
		defer navCancel()
		stop := context.AfterFunc(ctx, navCancel)
		defer stop()
		if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
		}
	}

	b.track(p)
	b.logger.Info("Page opened",
		zap.String("page_id", p.ID()), zap.String("url", opts.URL), zap.String("device", opts.Device))
	return p, nil
}

func (b *Browser) track(p *PageContext) {
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()

	go func() {
		<-p.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, open := range b.pages {
			if open == p {
				b.pages = append(b.pages[:i], b.pages[i+1:]...)
				break
			}
		}
	}()
}

// ActivePage returns the most recently opened page that is still live.
func (b *Browser) ActivePage() (*PageContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.pages) - 1; i >= 0; i-- {
		if b.pages[i].ctx.Err() == nil {
			return b.pages[i], nil
		}
	}
	return nil, ErrNoPage
}

// Frame captures the active page, for screen recording.
func (b *Browser) Frame(ctx context.Context) ([]byte, error) {
	p, err := b.ActivePage()
	if err != nil {
		return nil, err
	}
	return p.Frame(ctx)
}

// SystemInfo reads the environment from the active page.
func (b *Browser) SystemInfo(ctx context.Context) (models.SystemInfo, error) {
	p, err := b.ActivePage()
	if err != nil {
		return models.SystemInfo{}, err
	}
	return p.SystemInfo(ctx)
}

// Close shuts Chrome down. Pages opened on it stop receiving events.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
		b.ctx = nil
		b.logger.Info("Browser closed")
	}
}

// PageContext is one instrumented tab. It implements the page side of the
// recording: a local session, a normalizer and the iframe relay.
type PageContext struct {
	id     string
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	normalizer *Normalizer
	dispatcher *dispatcher
	shots      *pageScreenshotter

	events    chan string
	done      chan struct{}
	closeOnce sync.Once

	listenMu     sync.Mutex
	listenCancel context.CancelFunc
}

func newPageContext(tabCtx context.Context, cancel context.CancelFunc, sink StepSink, timeout time.Duration, logger *zap.Logger) *PageContext {
	id := uuid.NewString()
	l := logger.Named("page").With(zap.String("page_id", id))
	shots := &pageScreenshotter{ctx: tabCtx}
	n := NewNormalizer(NewLocalSession(), sink, shots, timeout, l)
	return &PageContext{
		id:         id,
		logger:     l,
		ctx:        tabCtx,
		cancel:     cancel,
		normalizer: n,
		dispatcher: &dispatcher{normalizer: n, relay: NewRelay(n)},
		shots:      shots,
		events:     make(chan string, pageEventQueue),
		done:       make(chan struct{}),
	}
}

func (p *PageContext) ID() string {
	return p.id
}

// Start begins forwarding page events into steps under opts.
func (p *PageContext) Start(_ context.Context, opts models.RecordingOptions) error {
	p.listenMu.Lock()
	defer p.listenMu.Unlock()

	if p.ctx.Err() != nil {
		return fmt.Errorf("page %s is closed", p.id)
	}
	p.normalizer.OnStart(opts)
	if p.listenCancel == nil {
		lctx, cancel := context.WithCancel(p.ctx)
		chromedp.ListenTarget(lctx, p.onTargetEvent)
		p.listenCancel = cancel
	}
	p.logger.Debug("Page recording started")
	return nil
}

// Stop detaches the binding listener. Queued events are still drained but
// dropped by the idle normalizer.
func (p *PageContext) Stop(_ context.Context) error {
	p.listenMu.Lock()
	defer p.listenMu.Unlock()

	p.normalizer.OnStop()
	if p.listenCancel != nil {
		p.listenCancel()
		p.listenCancel = nil
	}
	p.logger.Debug("Page recording stopped")
	return nil
}

// Frame captures the current viewport as PNG.
func (p *PageContext) Frame(ctx context.Context) ([]byte, error) {
	return p.shots.Capture(ctx, Region{})
}

// SystemInfo reads the environment block from the live page.
func (p *PageContext) SystemInfo(ctx context.Context) (models.SystemInfo, error) {
	var env struct {
		UA     string `json:"ua"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, chromedp.Evaluate(
		`({ua: navigator.userAgent, width: window.screen.width, height: window.screen.height})`, &env))
	if err != nil {
		return models.SystemInfo{}, fmt.Errorf("read system info: %w", err)
	}
	return SystemInfoFromUserAgent(env.UA, env.Width, env.Height), nil
}

// Close stops recording and closes the tab.
func (p *PageContext) Close() {
	p.closeOnce.Do(func() {
		_ = p.Stop(context.Background())
		p.cancel()
		<-p.done
		p.logger.Info("Page closed")
	})
}

// Done is closed once the page's event loop exits.
func (p *PageContext) Done() <-chan struct{} {
	return p.done
}

// onTargetEvent runs on chromedp's event goroutine and must not block.
func (p *PageContext) onTargetEvent(ev interface{}) {
	b, ok := ev.(*runtime.EventBindingCalled)
	if !ok || b.Name != BindingName {
		return
	}
	select {
	case p.events <- b.Payload:
	default:
		p.logger.Warn("Page event queue full, dropping event")
	}
}

// loop handles page events until the tab closes, then flushes whatever was
// already queued so the last actions before closing are not lost.
func (p *PageContext) loop() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			p.drain()
			return
		case payload := <-p.events:
			p.handle(p.ctx, payload)
		}
	}
}

func (p *PageContext) drain() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), pageDrainTimeout)
	defer cancel()
	for {
		select {
		case payload := <-p.events:
			p.handle(ctx, payload)
		default:
			return
		}
	}
}

func (p *PageContext) handle(ctx context.Context, payload string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Recovered from panic in page event handler", zap.Any("panic", r))
		}
	}()
	if err := p.dispatcher.dispatch(ctx, payload); err != nil {
		p.logger.Warn("Failed to handle page event", zap.Error(err))
	}
}

// pageScreenshotter captures the visible viewport of a tab.
type pageScreenshotter struct {
	ctx context.Context
}

func (s *pageScreenshotter) Capture(ctx context.Context, _ Region) ([]byte, error) {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}
