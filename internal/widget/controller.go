package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/events"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/logging"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/models"
)

// State is the controller's position in its request cycle.
type State int

const (
	StateIdle State = iota
	StateRequesting
)

// refresher is the slice of client.Client the controller needs.
type refresher interface {
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error)
}

// SyncController keeps one node instance's image selector in sync with the
// server's filtered listing for the selected subfolder.
//
// Every trigger claims a fresh generation and issues its own refresh call;
// new input is never blocked while a call is outstanding. When a response
// arrives it is applied only if its generation is still the latest — stale
// responses are unconditionally discarded, never merged. A failed call
// leaves the existing option set and selection untouched.
type SyncController struct {
	nodeID   string
	client   refresher
	selector *Selector
	preview  *PreviewLoader
	bus      *events.Bus
	log      *logging.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	subfolder  string
	subfolders []string
}

// Snapshot is the externally visible selection state of one node instance.
type Snapshot struct {
	State      State
	Subfolder  string
	Image      string
	Generation uint64
}

// ControllerOption configures a SyncController.
type ControllerOption func(*SyncController)

// WithPreview attaches a PreviewLoader that is shown the default selection
// after every applied refresh.
func WithPreview(p *PreviewLoader) ControllerOption {
	return func(c *SyncController) { c.preview = p }
}

// WithBus attaches a diagnostics bus.
func WithBus(bus *events.Bus) ControllerOption {
	return func(c *SyncController) { c.bus = bus }
}

// WithControllerLogger replaces the default stderr logger.
func WithControllerLogger(log *logging.Logger) ControllerOption {
	return func(c *SyncController) { c.log = log }
}

// NewSyncController creates a controller for one node instance.
func NewSyncController(nodeID string, client refresher, opts ...ControllerOption) *SyncController {
	c := &SyncController{
		nodeID:   nodeID,
		client:   client,
		selector: NewSelector(),
		log:      logging.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Selector returns the image selector this controller owns.
func (c *SyncController) Selector() *Selector {
	return c.selector
}

// Snapshot returns the current selection state.
func (c *SyncController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:      c.state,
		Subfolder:  c.subfolder,
		Image:      c.selector.Value(),
		Generation: c.generation,
	}
}

// Subfolders returns the subfolder options from the last applied refresh.
func (c *SyncController) Subfolders() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.subfolders...)
}

// SetSubfolder reacts to a subfolder-selection change.
func (c *SyncController) SetSubfolder(ctx context.Context, subfolder string) {
	c.trigger(ctx, subfolder, false)
}

// Refresh re-runs the currently selected subfolder, asking the server to
// drop its cached listing first so filesystem changes become visible.
func (c *SyncController) Refresh(ctx context.Context) {
	c.mu.Lock()
	subfolder := c.subfolder
	c.mu.Unlock()
	c.trigger(ctx, subfolder, true)
}

func (c *SyncController) trigger(ctx context.Context, subfolder string, force bool) {
	gen := c.begin(subfolder)
	go func() {
		resp, err := c.client.Refresh(ctx, models.RefreshRequest{
			NodeID:    c.nodeID,
			Subfolder: subfolder,
			Force:     force,
		})
		c.apply(ctx, gen, subfolder, resp, err)
	}()
}

// begin claims the next generation. The returned value tags the call whose
// outcome may still be applied.
func (c *SyncController) begin(subfolder string) uint64 {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = StateRequesting
	c.subfolder = subfolder
	c.mu.Unlock()

	c.publish(events.Event{Type: events.RefreshStarted, Subfolder: subfolder, Generation: gen})
	return gen
}

// apply commits a refresh outcome if gen is still the latest. Selector and
// state mutation happen under the lock so a stale outcome can never
// interleave with a newer one.
func (c *SyncController) apply(ctx context.Context, gen uint64, subfolder string, resp *models.RefreshResponse, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.publish(events.Event{Type: events.RefreshDiscarded, Subfolder: subfolder, Generation: gen})
		return
	}

	c.state = StateIdle

	if err == nil && (resp == nil || !resp.Success) {
		err = errRefreshRejected(resp)
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn().Str("node_id", c.nodeID).Err(err).Msg("refresh failed, keeping current listing")
		c.publish(events.Event{Type: events.RefreshFailed, Subfolder: subfolder, Generation: gen, Err: err})
		return
	}

	// The previous filename is deliberately not preserved across a subfolder
	// change: the default selection is always the first filtered image.
	options := resp.FilteredImages
	if len(options) == 0 {
		options = []string{""}
	}
	value := options[0]
	c.selector.SetOptions(options, value)
	c.subfolders = resp.Subfolders

	// The preview dispatch stays inside the critical section: releasing the
	// lock first would let a newer generation begin, apply, and call Show
	// before this one does, handing the preview's newest sequence token to
	// the older image. Show only claims its token and spawns the transfer,
	// and PreviewLoader never calls back into the controller, so holding the
	// lock across it is safe.
	if c.preview != nil {
		c.preview.Show(ctx, subfolder, value)
	}
	c.mu.Unlock()

	c.publish(events.Event{Type: events.RefreshApplied, Subfolder: subfolder, Image: value, Generation: gen})
}

// errRefreshRejected converts a structured {success:false} reply into an
// error for the diagnostics path.
func errRefreshRejected(resp *models.RefreshResponse) error {
	if resp == nil || resp.Error == "" {
		return errors.New("refresh rejected")
	}
	return fmt.Errorf("refresh rejected: %s", resp.Error)
}

func (c *SyncController) publish(e events.Event) {
	if c.bus == nil {
		return
	}
	e.NodeID = c.nodeID
	c.bus.Publish(e)
}
