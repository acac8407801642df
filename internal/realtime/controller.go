package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/richxcame/ride-board/internal/rides"
	"github.com/richxcame/ride-board/pkg/common"
	"github.com/richxcame/ride-board/pkg/logger"
)

// State is the lifecycle phase of the sync controller
type State int32

const (
	StateIdle State = iota
	StateSubscribing
	StateLive
	StateSearching
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateSearching:
		return "searching"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// ErrAlreadyStarted is returned when Start is called twice
var ErrAlreadyStarted = errors.New("sync controller already started")

// RideLister provides the ride snapshots the controller renders.
// *rides.Service satisfies it.
type RideLister interface {
	ListRides(ctx context.Context, limit int) ([]*rides.Ride, *common.AppError)
	SearchRides(ctx context.Context, query string, limit int) ([]*rides.Ride, *common.AppError)
}

// ChangeFeed delivers change notifications for the ride board. The channel
// closing means the subscription is lost for good.
type ChangeFeed interface {
	Changes(ctx context.Context) (<-chan struct{}, error)
	Close() error
}

// Renderer delivers snapshots to connected browsers
type Renderer interface {
	BroadcastBoard(list []*rides.Ride)
	SendBoard(clientID string, list []*rides.Ride)
	SendError(clientID string, message string)
	SessionLost()
}

// Controller keeps connected browsers in sync with the ride board. It holds
// one live subscription to the change feed and re-renders the full list on
// every notification. Searches are one-shot reads; a generation counter
// makes sure a slow search result never paints over a newer render.
type Controller struct {
	lister        RideLister
	feed          ChangeFeed
	renderer      Renderer
	snapshotLimit int

	state      atomic.Int32
	generation atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

// NewController creates a sync controller in the idle state
func NewController(lister RideLister, feed ChangeFeed, renderer Renderer, snapshotLimit int) *Controller {
	c := &Controller{
		lister:        lister,
		feed:          feed,
		renderer:      renderer,
		snapshotLimit: snapshotLimit,
	}
	c.state.Store(int32(StateIdle))
	return c
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Start subscribes to the change feed and pushes an initial snapshot.
// A failed subscription leaves the controller disposed; the session cannot
// recover without a reconnect.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateSubscribing)) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	changes, err := c.feed.Changes(ctx)
	if err != nil {
		c.state.Store(int32(StateDisposed))
		cancel()
		return err
	}

	c.state.Store(int32(StateLive))
	c.done = make(chan struct{})
	go c.run(ctx, changes)

	c.refresh(ctx)
	return nil
}

// Stop disposes the controller. Renders requested before Stop that finish
// after it are dropped.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if State(c.state.Swap(int32(StateDisposed))) == StateDisposed {
		return
	}
	c.generation.Add(1)

	if c.cancel != nil {
		c.cancel()
	}
	if err := c.feed.Close(); err != nil {
		logger.Warn("failed to close change feed", zap.Error(err))
	}
	if c.done != nil {
		<-c.done
	}
}

func (c *Controller) run(ctx context.Context, changes <-chan struct{}) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				if State(c.state.Swap(int32(StateDisposed))) != StateDisposed {
					logger.Error("change feed lost, closing all sessions")
					c.renderer.SessionLost()
				}
				return
			}
			c.refresh(ctx)
		}
	}
}

// refresh reads the full ride list and broadcasts it. The read is tagged
// with a fresh generation; if anything newer was requested while the read
// was in flight, the result is discarded.
func (c *Controller) refresh(ctx context.Context) {
	gen := c.generation.Add(1)

	list, appErr := c.lister.ListRides(ctx, c.snapshotLimit)
	if appErr != nil {
		// Keep the last rendered state; the next notification retries.
		logger.WithContext(ctx).Warn("snapshot refresh failed", zap.Error(appErr))
		return
	}

	if c.generation.Load() != gen || c.State() == StateDisposed {
		return
	}

	c.state.CompareAndSwap(int32(StateSearching), int32(StateLive))
	c.renderer.BroadcastBoard(list)
}

// Search runs a one-shot query for one client. An empty query reverts the
// client to the live board list.
func (c *Controller) Search(ctx context.Context, clientID, query string) {
	if c.State() == StateDisposed {
		return
	}

	query = strings.TrimSpace(query)
	gen := c.generation.Add(1)

	if query == "" {
		list, appErr := c.lister.ListRides(ctx, c.snapshotLimit)
		if appErr != nil {
			c.renderer.SendError(clientID, appErr.Message)
			return
		}
		if c.generation.Load() != gen || c.State() == StateDisposed {
			return
		}
		c.state.CompareAndSwap(int32(StateSearching), int32(StateLive))
		c.renderer.SendBoard(clientID, list)
		return
	}

	c.state.CompareAndSwap(int32(StateLive), int32(StateSearching))

	results, appErr := c.lister.SearchRides(ctx, query, c.snapshotLimit)
	if appErr != nil {
		logger.WithContext(ctx).Warn("search failed",
			zap.String("query", query), zap.Error(appErr))
		c.renderer.SendError(clientID, appErr.Message)
		return
	}

	if c.generation.Load() != gen || c.State() == StateDisposed {
		// A newer render was requested while this search was running.
		return
	}

	c.renderer.SendBoard(clientID, results)
}

// SendSnapshot pushes the current board to one client without touching the
// generation counter. Used right after a client connects.
func (c *Controller) SendSnapshot(ctx context.Context, clientID string) {
	if c.State() == StateDisposed {
		return
	}

	list, appErr := c.lister.ListRides(ctx, c.snapshotLimit)
	if appErr != nil {
		c.renderer.SendError(clientID, appErr.Message)
		return
	}
	c.renderer.SendBoard(clientID, list)
}
