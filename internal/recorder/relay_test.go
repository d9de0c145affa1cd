package recorder

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steprecorder/internal/models"
)

func TestRelay_ClickMatchesSameFrameCapture(t *testing.T) {
	target := element(t, "//button")

	sameFrame := &sinkSpy{}
	n := newTestNormalizer(t, sameFrame, nil, 0)
	n.OnStart(noShots())
	require.NoError(t, n.OnClick(context.Background(), ClickEvent{Target: target}))

	relayed := &sinkSpy{}
	top := newTestNormalizer(t, relayed, nil, 0)
	top.OnStart(noShots())
	msg := PackageClick("frame-1", target, Point{X: 5, Y: 6})
	require.NoError(t, NewRelay(top).Receive(context.Background(), msg))

	want := sameFrame.Steps()[0]
	got := relayed.Steps()[0]
	assert.Equal(t, want.Description+" (in iframe)", got.Description)
	assert.Equal(t, want.Action, got.Action)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Selectors, got.Selectors)
	assert.Equal(t, want.Timestamp, got.Timestamp)
}

func TestRelay_InputIsMaskedInFrame(t *testing.T) {
	msg := PackageInput("frame-1", element(t, "//input[@name='pw']"), "secret")
	assert.Equal(t, models.PasswordMask, msg.Value)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	sink := &sinkSpy{}
	top := newTestNormalizer(t, sink, nil, 0)
	top.OnStart(models.RecordingOptions{Language: "en"})

	decoded, err := DecodeFrameMessage(raw)
	require.NoError(t, err)
	require.NoError(t, NewRelay(top).Receive(context.Background(), decoded))

	steps := sink.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, `Input "********" on input with name "pw" (in iframe)`, steps[0].Description)
	assert.Nil(t, steps[0].Selectors)
}

func TestRelay_RejectsMalformedMessages(t *testing.T) {
	good := PackageClick("frame-1", element(t, "//span"), Point{})

	tests := []struct {
		name   string
		mutate func(*FrameMessage)
	}{
		{"wrong topic", func(m *FrameMessage) { m.Topic = "other" }},
		{"no sender", func(m *FrameMessage) { m.Sender = "" }},
		{"navigate is never relayed", func(m *FrameMessage) { m.EventType = "navigate" }},
		{"no description", func(m *FrameMessage) { m.Element.Description = "" }},
	}

	sink := &sinkSpy{}
	top := newTestNormalizer(t, sink, nil, 0)
	top.OnStart(noShots())
	relay := NewRelay(top)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := good
			tt.mutate(&msg)
			assert.ErrorIs(t, relay.Receive(context.Background(), msg), ErrInvalidFrameMessage)
		})
	}
	assert.Empty(t, sink.Steps())

	_, err := DecodeFrameMessage([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidFrameMessage)
}

func TestRelay_DropsWhileIdle(t *testing.T) {
	sink := &sinkSpy{}
	top := newTestNormalizer(t, sink, nil, 0)

	require.NoError(t, NewRelay(top).Receive(context.Background(), PackageClick("f", element(t, "//span"), Point{})))
	assert.Empty(t, sink.Steps())
}

func TestDispatcher(t *testing.T) {
	sink := &sinkSpy{}
	n := newTestNormalizer(t, sink, nil, 0)
	n.OnStart(noShots())
	d := &dispatcher{normalizer: n, relay: NewRelay(n)}
	ctx := context.Background()

	click := `{"kind":"click","element":{"tag":"A","className":"","text":" Docs ","index":0,"sameTag":1,
		"parent":{"tag":"NAV","index":0,"sameTag":1}},"region":{"x":1,"y":2,"width":3,"height":4}}`
	input := `{"kind":"input","element":{"tag":"INPUT","attrs":{"type":"password"},"index":0,"sameTag":1},"value":"leak"}`
	nav := `{"kind":"navigate","url":"https://example.com/next"}`
	frame := `{"kind":"frame","frame":{"topic":"steprecorder/frame-event","sender":"abc","eventType":"click",
		"element":{"tag":"BUTTON","attrs":{"id":"ok"},"index":0,"sameTag":1},"position":{"x":1,"y":1}}}`

	for _, payload := range []string{click, input, nav, frame} {
		require.NoError(t, d.dispatch(ctx, payload))
	}

	steps := sink.Steps()
	require.Len(t, steps, 4)
	assert.Equal(t, `Click on link with text "Docs"`, steps[0].Description)
	assert.Equal(t, "nav > a", steps[0].Selectors.CSS)
	assert.Equal(t, "//nav/a", steps[0].Selectors.XPath)
	assert.Equal(t, `Input "********" on password input field`, steps[1].Description)
	assert.Equal(t, "Navigate to https://example.com/next", steps[2].Description)
	assert.Equal(t, `Click on button with id "ok" (in iframe)`, steps[3].Description)
	assert.Equal(t, "#ok", steps[3].Selectors.CSS)
}

func TestDispatcher_BadPayloads(t *testing.T) {
	n := newTestNormalizer(t, &sinkSpy{}, nil, 0)
	n.OnStart(noShots())
	d := &dispatcher{normalizer: n, relay: NewRelay(n)}
	ctx := context.Background()

	assert.Error(t, d.dispatch(ctx, "nope"))
	assert.Error(t, d.dispatch(ctx, `{"kind":"scroll"}`))
	assert.Error(t, d.dispatch(ctx, `{"kind":"click"}`))
	assert.ErrorIs(t, d.dispatch(ctx, `{"kind":"frame"}`), ErrInvalidFrameMessage)
	assert.ErrorIs(t, d.dispatch(ctx, `{"kind":"frame","frame":{"topic":"x","sender":"s","eventType":"click","element":{"tag":"A"}}}`), ErrInvalidFrameMessage)
}
