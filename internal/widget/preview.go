package widget

import (
	"context"
	"sync"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/events"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/logging"
)

// Display is the surface a committed preview lands on. Implementations must
// not call back into the PreviewLoader.
type Display interface {
	// SetImage shows one image; the commit is idempotent.
	SetImage(filename, contentType string, data []byte)
	// Clear empties the pane.
	Clear()
}

// viewFetcher is the slice of client.Client the loader needs.
type viewFetcher interface {
	FetchView(ctx context.Context, subfolder, filename string) ([]byte, string, error)
}

// PreviewLoader keeps at most one preview transfer in flight per node
// instance. Starting a new load cancels the prior transfer and bumps a
// sequence token; a load may only commit to the display while its token is
// still the latest, so a superseded transfer that completes anyway has no
// visible effect.
type PreviewLoader struct {
	fetch   viewFetcher
	display Display
	bus     *events.Bus
	log     *logging.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// PreviewOption configures a PreviewLoader.
type PreviewOption func(*PreviewLoader)

// WithPreviewBus attaches a diagnostics bus.
func WithPreviewBus(bus *events.Bus) PreviewOption {
	return func(p *PreviewLoader) { p.bus = bus }
}

// WithPreviewLogger replaces the default stderr logger.
func WithPreviewLogger(log *logging.Logger) PreviewOption {
	return func(p *PreviewLoader) { p.log = log }
}

// NewPreviewLoader creates a loader fetching through fetch and committing to
// display.
func NewPreviewLoader(fetch viewFetcher, display Display, opts ...PreviewOption) *PreviewLoader {
	p := &PreviewLoader{
		fetch:   fetch,
		display: display,
		log:     logging.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Show loads and displays one image, superseding any pending load first. An
// empty filename clears the pane immediately with no network call.
func (p *PreviewLoader) Show(ctx context.Context, subfolder, filename string) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.seq++
	token := p.seq

	if filename == "" {
		p.display.Clear()
		p.mu.Unlock()
		p.publish(events.Event{Type: events.PreviewCleared, Subfolder: subfolder})
		return
	}

	loadCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.publish(events.Event{Type: events.PreviewStarted, Subfolder: subfolder, Image: filename, Generation: token})
	go p.load(loadCtx, token, subfolder, filename)
}

// load runs one transfer to completion and commits it if still current.
func (p *PreviewLoader) load(ctx context.Context, token uint64, subfolder, filename string) {
	data, contentType, err := p.fetch.FetchView(ctx, subfolder, filename)

	p.mu.Lock()
	if token != p.seq {
		p.mu.Unlock()
		p.publish(events.Event{Type: events.PreviewDiscarded, Subfolder: subfolder, Image: filename, Generation: token})
		return
	}
	p.cancel = nil

	if err != nil {
		// A vanished or undecodable file leaves the pane showing its last
		// committed image; the selector state machine is unaffected.
		p.mu.Unlock()
		p.log.Warn().Str("image", filename).Err(err).Msg("preview load failed")
		p.publish(events.Event{Type: events.PreviewFailed, Subfolder: subfolder, Image: filename, Generation: token, Err: err})
		return
	}

	p.display.SetImage(filename, contentType, data)
	p.mu.Unlock()
	p.publish(events.Event{Type: events.PreviewCommitted, Subfolder: subfolder, Image: filename, Generation: token})
}

func (p *PreviewLoader) publish(e events.Event) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(e)
}
