// Package bridge implements world.Gateway over a websocket connection to a
// game-client sidecar. The sidecar owns the actual game protocol and
// pathfinding; this package speaks a small JSON frame protocol to it, keeps
// the pushed state cached for cheap perception queries, and correlates
// request/response pairs by id.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"autocraft/internal/config"
	"autocraft/internal/logging"
	"autocraft/internal/world"
)

const (
	writeWait   = 10 * time.Second
	eventBuffer = 256
	chatBuffer  = 64
	findLimit   = 64
)

// Options configures a Client.
type Options struct {
	URL            string
	Server         config.ServerConfig
	RequestTimeout time.Duration
	ChatPerSecond  float64
	ChatBurst      int
	Dialer         *websocket.Dialer
}

// OptionsFromConfig builds Options from a loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:            cfg.Bridge.URL,
		Server:         cfg.Server,
		RequestTimeout: cfg.GetBridgeTimeout(),
		ChatPerSecond:  cfg.Bridge.ChatPerSecond,
		ChatBurst:      cfg.Bridge.ChatBurst,
	}
}

// Client is a world.Gateway backed by the sidecar.
type Client struct {
	opts Options
	conn *websocket.Conn

	writeMu sync.Mutex

	chatLimit *rate.Limiter
	chatQueue chan string

	mu     sync.RWMutex
	state  stateFrame
	blocks map[string]bool
	items  map[string]bool

	pmu     sync.Mutex
	pending map[string]chan envelope

	events chan world.Event

	ctx     context.Context
	cancel  context.CancelFunc
	closing atomic.Bool
	wg      sync.WaitGroup
}

var _ world.Gateway = (*Client)(nil)

// Dial connects to the sidecar and asks it to join the configured server.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	logging.Bridge("connecting to sidecar at %s", opts.URL)
	conn, _, err := dialer.DialContext(ctx, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bridge %s: %w", opts.URL, err)
	}

	c := newClient(conn, opts)
	c.wg.Add(2)
	go c.readLoop()
	go c.chatLoop()

	join := joinArgs{
		Host:     opts.Server.Host,
		Port:     opts.Server.Port,
		Username: opts.Server.Username,
		Version:  opts.Server.Version,
	}
	if err := c.command(opJoin, join); err != nil {
		c.Close()
		return nil, fmt.Errorf("join %s: %w", opts.Server.Address(), err)
	}
	logging.Bridge("asked sidecar to join %s as %s", opts.Server.Address(), opts.Server.Username)
	return c, nil
}

func newClient(conn *websocket.Conn, opts Options) *Client {
	limit := rate.Inf
	if opts.ChatPerSecond > 0 {
		limit = rate.Limit(opts.ChatPerSecond)
	}
	burst := opts.ChatBurst
	if burst < 1 {
		burst = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:      opts,
		conn:      conn,
		chatLimit: rate.NewLimiter(limit, burst),
		chatQueue: make(chan string, chatBuffer),
		blocks:    make(map[string]bool),
		items:     make(map[string]bool),
		pending:   make(map[string]chan envelope),
		events:    make(chan world.Event, eventBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Close drops the connection and waits for the background loops.
func (c *Client) Close() error {
	if c.closing.Swap(true) {
		return nil
	}
	c.cancel()
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) send(env envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(env)
}

func encode(args any) (json.RawMessage, error) {
	if args == nil {
		return nil, nil
	}
	return json.Marshal(args)
}

// command sends a fire-and-forget frame.
func (c *Client) command(op string, args any) error {
	payload, err := encode(args)
	if err != nil {
		return err
	}
	return c.send(envelope{Type: frameCommand, Op: op, Payload: payload})
}

// fire sends a command and only logs failures.
func (c *Client) fire(op string, args any) {
	if err := c.command(op, args); err != nil {
		logging.Get(logging.CategoryBridge).Warn("%s failed: %v", op, err)
	}
}

// call sends a request and waits for its response. Bounded calls also
// observe the configured request timeout; travel and digging do not.
func (c *Client) call(ctx context.Context, op string, args, out any, bounded bool) error {
	payload, err := encode(args)
	if err != nil {
		return err
	}
	if bounded && c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	id := uuid.NewString()
	reply := make(chan envelope, 1)
	c.pmu.Lock()
	c.pending[id] = reply
	c.pmu.Unlock()
	defer func() {
		c.pmu.Lock()
		delete(c.pending, id)
		c.pmu.Unlock()
	}()

	if err := c.send(envelope{Type: frameRequest, ID: id, Op: op, Payload: payload}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logging.BridgeDebug("-> %s %s", op, id)

	select {
	case resp := <-reply:
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", op, resp.Error)
		}
		if out != nil && len(resp.Payload) > 0 {
			if err := json.Unmarshal(resp.Payload, out); err != nil {
				return fmt.Errorf("%w: decode %s response: %v", ErrProtocol, op, err)
			}
		}
		return nil
	case <-ctx.Done():
		// Tell the sidecar to abandon the work; the late response is dropped.
		_ = c.command(opCancel, cancelArgs{ID: id})
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case <-c.ctx.Done():
		return fmt.Errorf("%s: %w", op, world.ErrDisconnected)
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	defer close(c.events)

	announced := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.state.Spawned = false
			c.mu.Unlock()
			if !c.closing.Load() && !announced {
				logging.Get(logging.CategoryBridge).Warn("connection to sidecar lost: %v", err)
				c.emit(world.Event{Type: world.EventDisconnect, Reason: err.Error()})
			}
			c.cancel()
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logging.BridgeDebug("dropping malformed frame: %v", err)
			continue
		}
		if ev, ok := c.handle(env); ok {
			if ev.Type == world.EventDisconnect {
				announced = true
			}
			c.emit(ev)
		}
	}
}

// handle applies one inbound frame and returns the event it carries, if any.
func (c *Client) handle(env envelope) (world.Event, bool) {
	switch env.Type {
	case frameResponse:
		c.pmu.Lock()
		reply, ok := c.pending[env.ID]
		c.pmu.Unlock()
		if !ok {
			logging.BridgeDebug("late response for %s %s", env.Op, env.ID)
			return world.Event{}, false
		}
		select {
		case reply <- env:
		default:
			logging.BridgeDebug("duplicate response for %s", env.ID)
		}

	case frameState:
		var st stateFrame
		if err := json.Unmarshal(env.Payload, &st); err != nil {
			logging.Get(logging.CategoryBridge).Warn("bad state frame: %v", err)
			return world.Event{}, false
		}
		c.mu.Lock()
		c.state = st
		c.mu.Unlock()

	case frameRegistry:
		var reg registryFrame
		if err := json.Unmarshal(env.Payload, &reg); err != nil {
			logging.Get(logging.CategoryBridge).Warn("bad registry frame: %v", err)
			return world.Event{}, false
		}
		c.mu.Lock()
		for _, b := range reg.Blocks {
			c.blocks[b] = true
		}
		for _, it := range reg.Items {
			c.items[it] = true
		}
		c.mu.Unlock()
		logging.BridgeDebug("registry: %d blocks, %d items", len(reg.Blocks), len(reg.Items))

	case frameEvent:
		var f eventFrame
		if err := json.Unmarshal(env.Payload, &f); err != nil {
			logging.Get(logging.CategoryBridge).Warn("bad event frame: %v", err)
			return world.Event{}, false
		}
		ev, ok := f.toEvent()
		if !ok {
			logging.BridgeDebug("ignoring event %q", f.Kind)
			return world.Event{}, false
		}
		c.mu.Lock()
		switch ev.Type {
		case world.EventSpawn:
			c.state.Spawned = true
			c.state.Health = ev.Health
		case world.EventHealth:
			c.state.Health = ev.Health
		case world.EventDisconnect:
			c.state.Spawned = false
		}
		c.mu.Unlock()
		return ev, true

	default:
		logging.BridgeDebug("ignoring frame type %q", env.Type)
	}
	return world.Event{}, false
}

// emit is only called from readLoop, which also owns closing events.
func (c *Client) emit(ev world.Event) {
	select {
	case c.events <- ev:
	default:
		logging.Get(logging.CategoryBridge).Warn("event buffer full, dropping %s", ev.Type)
	}
}

func (c *Client) chatLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case text := <-c.chatQueue:
			if err := c.chatLimit.Wait(c.ctx); err != nil {
				return
			}
			c.fire(opChat, chatArgs{Text: text})
		}
	}
}
