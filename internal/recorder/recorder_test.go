package recorder

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"steprecorder/internal/dom"
	"steprecorder/internal/models"
)

const formHTML = `<html><body>
	<form>
		<input type="text" name="user">
		<input type="password" name="pw">
		<input type="password">
		<button id="go">Sign in</button>
		<span>plain</span>
	</form>
</body></html>`

type sinkSpy struct {
	mu    sync.Mutex
	steps []models.Step
	err   error
}

func (s *sinkSpy) Record(_ context.Context, step models.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.steps = append(s.steps, step)
	return nil
}

func (s *sinkSpy) Steps() []models.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Step(nil), s.steps...)
}

type shotFunc func(ctx context.Context, r Region) ([]byte, error)

func (f shotFunc) Capture(ctx context.Context, r Region) ([]byte, error) { return f(ctx, r) }

func element(t *testing.T, expr string) dom.Element {
	t.Helper()
	doc, err := htmlquery.Parse(strings.NewReader(formHTML))
	require.NoError(t, err)
	n := htmlquery.FindOne(doc, expr)
	require.NotNil(t, n, "no node for %s", expr)
	return dom.FromHTML(n)
}

var fixedTime = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

func newTestNormalizer(t *testing.T, sink StepSink, shots ScreenshotCapturer, timeout time.Duration) *Normalizer {
	n := NewNormalizer(NewLocalSession(), sink, shots, timeout, zaptest.NewLogger(t))
	n.now = func() time.Time { return fixedTime }
	return n
}

func noShots() models.RecordingOptions {
	return models.RecordingOptions{CaptureSelectors: true, Language: "en"}
}

func TestNormalizer_IgnoresEventsWhileIdle(t *testing.T) {
	sink := &sinkSpy{}
	n := newTestNormalizer(t, sink, nil, 0)

	require.NoError(t, n.OnClick(context.Background(), ClickEvent{Target: element(t, "//button")}))
	require.NoError(t, n.OnNavigate(context.Background(), NavigateEvent{URL: "https://a.test"}))
	assert.Empty(t, sink.Steps())

	n.OnStart(noShots())
	n.OnStop()
	require.NoError(t, n.OnClick(context.Background(), ClickEvent{Target: element(t, "//button")}))
	assert.Empty(t, sink.Steps())
}

func TestNormalizer_Click(t *testing.T) {
	sink := &sinkSpy{}
	n := newTestNormalizer(t, sink, nil, 0)
	n.OnStart(noShots())

	require.NoError(t, n.OnClick(context.Background(), ClickEvent{Target: element(t, "//button")}))

	steps := sink.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, models.Step{
		Kind:        models.ActionClick,
		Action:      "Click",
		Description: `Click on button with id "go"`,
		Selectors:   &models.Selectors{XPath: `//*[@id="go"]`, CSS: "#go"},
		Timestamp:   "3:04:05 PM",
	}, steps[0])
}

func TestNormalizer_InputAndPasswordMask(t *testing.T) {
	sink := &sinkSpy{}
	n := newTestNormalizer(t, sink, nil, 0)
	n.OnStart(models.RecordingOptions{Language: "de"})

	ctx := context.Background()
	require.NoError(t, n.OnInput(ctx, InputEvent{Target: element(t, "//input[@name='user']"), Value: "alice"}))
	require.NoError(t, n.OnInput(ctx, InputEvent{Target: element(t, "//input[@name='pw']"), Value: "hunter2"}))
	require.NoError(t, n.OnInput(ctx, InputEvent{Target: element(t, "//form/input[3]"), Value: ""}))

	steps := sink.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, `Eingabe "alice" auf input with name "user"`, steps[0].Description)
	assert.Equal(t, "Eingabe", steps[0].Action)
	assert.Nil(t, steps[0].Selectors, "selectors were not requested")
	assert.Equal(t, `Eingabe "********" auf input with name "pw"`, steps[1].Description)
	assert.Equal(t, `Eingabe "********" auf password input field`, steps[2].Description)
	for _, s := range steps {
		assert.NotContains(t, s.Description, "hunter2")
	}
}

func TestNormalizer_Navigate(t *testing.T) {
	sink := &sinkSpy{}
	called := false
	shots := shotFunc(func(context.Context, Region) ([]byte, error) {
		called = true
		return []byte("png"), nil
	})
	n := newTestNormalizer(t, sink, shots, 0)
	n.OnStart(models.RecordingOptions{CaptureScreenshots: true, CaptureSelectors: true, Language: "fr"})

	require.NoError(t, n.OnNavigate(context.Background(), NavigateEvent{URL: "https://example.com/a?b=c"}))

	steps := sink.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "Naviguer vers https://example.com/a?b=c", steps[0].Description)
	assert.Equal(t, models.ActionNavigate, steps[0].Kind)
	assert.Nil(t, steps[0].Selectors)
	assert.Empty(t, steps[0].Screenshot)
	assert.False(t, called)
}

func TestNormalizer_Screenshot(t *testing.T) {
	sink := &sinkSpy{}
	var gotRegion Region
	shots := shotFunc(func(_ context.Context, r Region) ([]byte, error) {
		gotRegion = r
		return []byte("png-bytes"), nil
	})
	n := newTestNormalizer(t, sink, shots, time.Second)
	n.OnStart(models.RecordingOptions{CaptureScreenshots: true, Language: "en"})

	region := Region{X: 10, Y: 20, Width: 30, Height: 40}
	require.NoError(t, n.OnClick(context.Background(), ClickEvent{Target: element(t, "//span"), Region: region}))

	steps := sink.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, region, gotRegion)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("png-bytes")), steps[0].Screenshot)
}

func TestNormalizer_ScreenshotFailureDegrades(t *testing.T) {
	tests := []struct {
		name  string
		shots ScreenshotCapturer
	}{
		{"error", shotFunc(func(context.Context, Region) ([]byte, error) {
			return nil, errors.New("tab hidden")
		})},
		{"timeout", shotFunc(func(ctx context.Context, _ Region) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})},
		{"ignores context", shotFunc(func(context.Context, Region) ([]byte, error) {
			time.Sleep(200 * time.Millisecond)
			return []byte("late"), nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &sinkSpy{}
			n := newTestNormalizer(t, sink, tt.shots, 20*time.Millisecond)
			n.OnStart(models.RecordingOptions{CaptureScreenshots: true, Language: "en"})

			require.NoError(t, n.OnClick(context.Background(), ClickEvent{Target: element(t, "//span")}))

			steps := sink.Steps()
			require.Len(t, steps, 1)
			assert.Equal(t, "Click on span", steps[0].Description)
			assert.Empty(t, steps[0].Screenshot)
		})
	}
}

func TestNormalizer_DiscardsStepWhenStoppedDuringScreenshot(t *testing.T) {
	sink := &sinkSpy{}
	var n *Normalizer
	shots := shotFunc(func(context.Context, Region) ([]byte, error) {
		n.OnStop()
		return []byte("png"), nil
	})
	n = newTestNormalizer(t, sink, shots, time.Second)
	n.OnStart(models.RecordingOptions{CaptureScreenshots: true, Language: "en"})

	require.NoError(t, n.OnClick(context.Background(), ClickEvent{Target: element(t, "//button")}))
	assert.Empty(t, sink.Steps())
}

func TestNormalizer_SinkError(t *testing.T) {
	sink := &sinkSpy{err: errors.New("store down")}
	n := newTestNormalizer(t, sink, nil, 0)
	n.OnStart(noShots())

	err := n.OnClick(context.Background(), ClickEvent{Target: element(t, "//button")})
	assert.ErrorContains(t, err, "store down")
}

func TestNormalizer_UnknownLanguageFallsBack(t *testing.T) {
	sink := &sinkSpy{}
	n := newTestNormalizer(t, sink, nil, 0)
	n.OnStart(models.RecordingOptions{Language: "tlh"})

	require.NoError(t, n.OnClick(context.Background(), ClickEvent{Target: element(t, "//span")}))
	assert.Equal(t, "Click on span", sink.Steps()[0].Description)
}

func TestSystemInfoFromUserAgent(t *testing.T) {
	ua := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
	info := SystemInfoFromUserAgent(ua, 1920, 1080)
	assert.Equal(t, "Chrome 120.0", info.Browser)
	assert.Equal(t, "Linux", info.OS)
	assert.Equal(t, "1920x1080", info.Resolution)

	info = SystemInfoFromUserAgent("curl/8.0", 0, 0)
	assert.Equal(t, "curl/8.0", info.Browser)
	assert.Equal(t, "Unknown OS", info.OS)
}

func TestCaptureScript(t *testing.T) {
	script := CaptureScript()
	assert.Contains(t, script, "'"+BindingName+"'")
	assert.Contains(t, script, "'"+FrameTopic+"'")
	assert.NotContains(t, script, "__BINDING__")
	assert.NotContains(t, script, "__TOPIC__")
}
