package recorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"steprecorder/internal/models"
)

// liveSink refuses steps recorded under a cancelled context, as the session
// coordinator does.
type liveSink struct {
	sinkSpy
}

func (s *liveSink) Record(ctx context.Context, step models.Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.sinkSpy.Record(ctx, step)
}

func TestPageContext_FlushesQueuedEventsOnClose(t *testing.T) {
	sink := &liveSink{}
	tabCtx, cancel := context.WithCancel(context.Background())
	p := newPageContext(tabCtx, cancel, sink, 0, zaptest.NewLogger(t))
	p.normalizer.OnStart(noShots())

	p.events <- `{"kind":"navigate","url":"https://example.com/a"}`
	p.events <- `{"kind":"navigate","url":"https://example.com/b"}`
	cancel()
	p.loop()

	steps := sink.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "Navigate to https://example.com/a", steps[0].Description)
	assert.Equal(t, "Navigate to https://example.com/b", steps[1].Description)

	select {
	case <-p.Done():
	default:
		t.Fatal("done not closed")
	}
}
