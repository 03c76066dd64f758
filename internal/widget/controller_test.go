package widget

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/logging"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/models"
)

// fakeRefresher returns canned responses keyed by subfolder and records
// every request it receives.
type fakeRefresher struct {
	mu        sync.Mutex
	responses map[string]*models.RefreshResponse
	err       error
	requests  []models.RefreshRequest
	release   chan struct{} // when non-nil, Refresh blocks until closed
}

func (f *fakeRefresher) Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if resp, ok := f.responses[req.Subfolder]; ok {
		return resp, nil
	}
	return &models.RefreshResponse{Success: true, FilteredImages: []string{}}, nil
}

func (f *fakeRefresher) recorded() []models.RefreshRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RefreshRequest(nil), f.requests...)
}

func okResponse(images ...string) *models.RefreshResponse {
	return &models.RefreshResponse{
		Success:        true,
		Subfolders:     []string{"", "x"},
		FilteredImages: images,
	}
}

// waitIdle polls until the controller has settled back to StateIdle.
func waitIdle(t *testing.T, c *SyncController) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := c.Snapshot(); snap.State == StateIdle {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("controller never returned to idle: %+v", c.Snapshot())
	return Snapshot{}
}

func TestSetSubfolderAppliesListing(t *testing.T) {
	f := &fakeRefresher{responses: map[string]*models.RefreshResponse{
		"x": okResponse("c.jpg", "d.png"),
	}}
	c := NewSyncController("7", f, WithControllerLogger(logging.Nop()))

	c.SetSubfolder(context.Background(), "x")
	snap := waitIdle(t, c)

	if snap.Subfolder != "x" {
		t.Errorf("Subfolder = %q, want x", snap.Subfolder)
	}
	if snap.Image != "c.jpg" {
		t.Errorf("Image = %q, want first listed image c.jpg", snap.Image)
	}
	if got, want := c.Selector().Options(), []string{"c.jpg", "d.png"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Options() = %v, want %v", got, want)
	}
	if got, want := c.Subfolders(), []string{"", "x"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Subfolders() = %v, want %v", got, want)
	}
}

func TestEmptyListingShowsPlaceholder(t *testing.T) {
	f := &fakeRefresher{responses: map[string]*models.RefreshResponse{
		"empty": okResponse(),
	}}
	c := NewSyncController("7", f, WithControllerLogger(logging.Nop()))

	c.SetSubfolder(context.Background(), "empty")
	waitIdle(t, c)

	if got, want := c.Selector().Options(), []string{""}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Options() = %v, want placeholder %v", got, want)
	}
	if got := c.Selector().Value(); got != "" {
		t.Errorf("Value() = %q, want empty placeholder", got)
	}
}

func TestFailedRefreshKeepsSelector(t *testing.T) {
	f := &fakeRefresher{responses: map[string]*models.RefreshResponse{
		"x": okResponse("c.jpg"),
	}}
	c := NewSyncController("7", f, WithControllerLogger(logging.Nop()))

	c.SetSubfolder(context.Background(), "x")
	waitIdle(t, c)

	f.mu.Lock()
	f.err = errors.New("connection refused")
	f.mu.Unlock()

	c.SetSubfolder(context.Background(), "y")
	snap := waitIdle(t, c)

	if got, want := c.Selector().Options(), []string{"c.jpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Options() = %v after failed refresh, want unchanged %v", got, want)
	}
	if snap.Image != "c.jpg" {
		t.Errorf("Image = %q after failed refresh, want unchanged c.jpg", snap.Image)
	}
}

func TestRejectedRefreshKeepsSelector(t *testing.T) {
	f := &fakeRefresher{responses: map[string]*models.RefreshResponse{
		"x":   okResponse("c.jpg"),
		"../": {Success: false, Error: "invalid subfolder"},
	}}
	c := NewSyncController("7", f, WithControllerLogger(logging.Nop()))

	c.SetSubfolder(context.Background(), "x")
	waitIdle(t, c)
	c.SetSubfolder(context.Background(), "../")
	waitIdle(t, c)

	if got, want := c.Selector().Options(), []string{"c.jpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Options() = %v after rejected refresh, want unchanged %v", got, want)
	}
}

func TestRefreshForcesServerRecompute(t *testing.T) {
	f := &fakeRefresher{responses: map[string]*models.RefreshResponse{
		"x": okResponse("c.jpg"),
	}}
	c := NewSyncController("7", f, WithControllerLogger(logging.Nop()))

	c.SetSubfolder(context.Background(), "x")
	waitIdle(t, c)
	c.Refresh(context.Background())
	waitIdle(t, c)

	reqs := f.recorded()
	if len(reqs) != 2 {
		t.Fatalf("recorded %d requests, want 2", len(reqs))
	}
	if reqs[0].Force {
		t.Error("subfolder change request has Force set")
	}
	if !reqs[1].Force || reqs[1].Subfolder != "x" {
		t.Errorf("manual refresh request = %+v, want Force=true Subfolder=x", reqs[1])
	}
	if reqs[1].NodeID != "7" {
		t.Errorf("NodeID = %q, want 7", reqs[1].NodeID)
	}
}

// TestStaleResponseDiscarded drives begin/apply directly so the out-of-order
// completion is deterministic: the response for the older generation arrives
// after the newer one was applied and must have no effect.
func TestStaleResponseDiscarded(t *testing.T) {
	c := NewSyncController("7", &fakeRefresher{}, WithControllerLogger(logging.Nop()))
	ctx := context.Background()

	genA := c.begin("a")
	genB := c.begin("b")

	c.apply(ctx, genB, "b", okResponse("b1.png", "b2.png"), nil)
	c.apply(ctx, genA, "a", okResponse("a1.png"), nil)

	if got, want := c.Selector().Options(), []string{"b1.png", "b2.png"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Options() = %v after stale apply, want %v", got, want)
	}
	snap := c.Snapshot()
	if snap.Subfolder != "b" {
		t.Errorf("Subfolder = %q, want b", snap.Subfolder)
	}
	if snap.Image != "b1.png" {
		t.Errorf("Image = %q, want b1.png", snap.Image)
	}
}

// TestStaleErrorDiscarded: a failure belonging to a superseded generation
// must not disturb the newer applied listing either.
func TestStaleErrorDiscarded(t *testing.T) {
	c := NewSyncController("7", &fakeRefresher{}, WithControllerLogger(logging.Nop()))
	ctx := context.Background()

	genA := c.begin("a")
	genB := c.begin("b")

	c.apply(ctx, genB, "b", okResponse("b1.png"), nil)
	c.apply(ctx, genA, "a", nil, errors.New("timeout"))

	if got, want := c.Selector().Options(), []string{"b1.png"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Options() = %v, want %v", got, want)
	}
	if snap := c.Snapshot(); snap.State != StateIdle {
		t.Errorf("State = %v, want StateIdle", snap.State)
	}
}

// TestPreviewFollowsLatestGeneration races an older generation's apply
// against a newer trigger: whichever way the scheduler interleaves them, the
// image the preview settles on must belong to the generation the controller
// settled on. Before the preview dispatch was brought under the controller
// lock, the older apply could pass its generation check, lose the CPU, and
// claim the preview's newest sequence token after the newer apply had
// already shown its image.
func TestPreviewFollowsLatestGeneration(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		display := &fakeDisplay{}
		instant := fetchFunc(func(ctx context.Context, subfolder, filename string) ([]byte, string, error) {
			return []byte("bytes"), "image/png", nil
		})
		p := NewPreviewLoader(instant, display, WithPreviewLogger(logging.Nop()))
		c := NewSyncController("7", &fakeRefresher{},
			WithPreview(p), WithControllerLogger(logging.Nop()))

		genA := c.begin("a")
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.apply(ctx, genA, "a", okResponse("a1.png"), nil)
		}()
		genB := c.begin("b")
		c.apply(ctx, genB, "b", okResponse("b1.png"), nil)
		wg.Wait()

		// b is the highest generation, so its image must be the last commit.
		deadline := time.Now().Add(2 * time.Second)
		for {
			committed := display.committed()
			if n := len(committed); n > 0 && committed[n-1] == "b1.png" {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("iteration %d: preview never committed b1.png, commits: %v", i, display.committed())
			}
			time.Sleep(time.Millisecond)
		}
		time.Sleep(2 * time.Millisecond)
		committed := display.committed()
		if committed[len(committed)-1] != "b1.png" {
			t.Fatalf("iteration %d: preview shows stale image, commits: %v", i, committed)
		}
	}
}

func TestRapidSwitchingLatestWins(t *testing.T) {
	release := make(chan struct{})
	f := &fakeRefresher{
		release: release,
		responses: map[string]*models.RefreshResponse{
			"a": okResponse("a1.png"),
			"b": okResponse("b1.png"),
			"c": okResponse("c1.png"),
		},
	}
	c := NewSyncController("7", f, WithControllerLogger(logging.Nop()))
	ctx := context.Background()

	c.SetSubfolder(ctx, "a")
	c.SetSubfolder(ctx, "b")
	c.SetSubfolder(ctx, "c")
	close(release)

	snap := waitIdle(t, c)
	// All three complete eventually; only the last trigger may be visible.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(f.recorded()) == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap.Subfolder != "c" {
		t.Errorf("Subfolder = %q, want c", snap.Subfolder)
	}
	if got := c.Selector().Value(); got != "c1.png" {
		t.Errorf("Value() = %q, want c1.png", got)
	}
}
