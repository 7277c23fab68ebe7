package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/KilimcininKorOglu/quorum/internal/kv"
	"github.com/KilimcininKorOglu/quorum/internal/logging"
	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

// Default client settings.
const (
	DefaultDialTimeout    = 500 * time.Millisecond
	DefaultRequestTimeout = 5 * time.Second
	DefaultMinBackoff     = 10 * time.Millisecond
	DefaultMaxBackoff     = 500 * time.Millisecond
)

const notLeaderPrefix = "NOTLEADER"

// Options configures a Client.
type Options struct {
	Codec          kv.Codec
	Logger         logging.Logger
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
}

func (o *Options) setDefaults() error {
	if o.Codec == nil {
		c, err := kv.LookupCodec("binary")
		if err != nil {
			return err
		}
		o.Codec = c
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = DefaultMinBackoff
	}
	if o.MaxBackoff < o.MinBackoff {
		o.MaxBackoff = DefaultMaxBackoff
		if o.MaxBackoff < o.MinBackoff {
			o.MaxBackoff = o.MinBackoff
		}
	}
	return nil
}

// Client talks to a cluster through the client endpoints of its nodes. It
// remembers the last node that accepted a request and follows NOTLEADER
// redirects to find the leader.
type Client struct {
	opts      Options
	endpoints []string

	mu        sync.Mutex
	conns     map[string]*redis.Client
	leader    string
	next      int
	connected bool
	closed    bool
}

// New creates a client for the given endpoints. It does not dial; call
// Connect before submitting.
func New(endpoints []raft.Endpoint, opts Options) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}

	addrs := make([]string, len(endpoints))
	for i, ep := range endpoints {
		addrs[i] = ep.String()
	}

	return &Client{
		opts:      opts,
		endpoints: addrs,
		conns:     make(map[string]*redis.Client, len(addrs)),
	}, nil
}

// Endpoints returns the addresses the client was created with.
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// Connect dials every endpoint and waits until each answers PING, retrying
// until ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range c.endpoints {
		addr := addr
		g.Go(func() error {
			return c.ping(gctx, addr)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.connected = true
	c.opts.Logger.Debug("client connected", "endpoints", strings.Join(c.endpoints, ","))
	return nil
}

func (c *Client) ping(ctx context.Context, addr string) error {
	backoff := newFibonacci(c.opts.MinBackoff, c.opts.MaxBackoff)
	for {
		rc, err := c.conn(addr)
		if err != nil {
			return err
		}
		err = rc.Ping(ctx).Err()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("ping %s: %w", addr, errors.Join(ctx.Err(), err))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("ping %s: %w", addr, errors.Join(ctx.Err(), err))
		case <-time.After(backoff.Next()):
		}
	}
}

// Connected reports whether Connect succeeded and Close has not been called.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && !c.closed
}

// Close releases every connection. Closing twice is a no-op. Close waits
// for connections to shut down until ctx is done.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conns := c.conns
	c.conns = nil
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for addr, rc := range conns {
			if err := rc.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// conn returns the connection pool for addr, creating it on first use.
// Redirects may name nodes the client was not created with.
func (c *Client) conn(addr string) (*redis.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if rc, ok := c.conns[addr]; ok {
		return rc, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:                  addr,
		Protocol:              2,
		DisableIdentity:       true,
		MaxRetries:            -1,
		DialTimeout:           c.opts.DialTimeout,
		ReadTimeout:           c.opts.RequestTimeout,
		WriteTimeout:          c.opts.RequestTimeout,
		ContextTimeoutEnabled: true,
		PoolSize:              4,
	})
	c.conns[addr] = rc
	return rc, nil
}

// target returns the node to try first: the last known leader, otherwise
// the next endpoint in rotation.
func (c *Client) target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.leader != "" {
		return c.leader
	}
	return c.rotate()
}

// rotate must be called with mu held.
func (c *Client) rotate() string {
	addr := c.endpoints[c.next%len(c.endpoints)]
	c.next++
	return addr
}

func (c *Client) setLeader(addr string) {
	c.mu.Lock()
	c.leader = addr
	c.mu.Unlock()
}

// forget drops addr as the leader hint and returns the next node to try.
func (c *Client) forget(addr string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.leader == addr {
		c.leader = ""
	}
	next := c.rotate()
	if next == addr && len(c.endpoints) > 1 {
		next = c.rotate()
	}
	return next
}

// Leader returns the address of the node that last accepted a request.
func (c *Client) Leader() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leader
}

// Submit sends op to the leader and returns its result. Writes are
// replicated with SUBMIT; reads use QUERY. Redirects and unreachable nodes
// are retried with Fibonacci backoff until ctx is done.
func (c *Client) Submit(ctx context.Context, op kv.Op) (kv.Result, error) {
	if err := op.Validate(); err != nil {
		return kv.Result{}, err
	}
	payload, err := c.opts.Codec.EncodeOp(op)
	if err != nil {
		return kv.Result{}, err
	}

	command := "QUERY"
	if op.IsWrite() {
		command = "SUBMIT"
	}

	backoff := newFibonacci(c.opts.MinBackoff, c.opts.MaxBackoff)
	addr := c.target()
	for {
		out, err := c.do(ctx, addr, command, payload)
		if err == nil {
			c.setLeader(addr)
			return c.opts.Codec.DecodeResult(op.Kind, out)
		}
		if errors.Is(err, ErrClosed) {
			return kv.Result{}, err
		}
		if ctx.Err() != nil {
			return kv.Result{}, fmt.Errorf("%s %s: %w", strings.ToLower(command), op, errors.Join(ctx.Err(), err))
		}

		hint, retry := classify(err)
		if !retry {
			return kv.Result{}, err
		}

		next := hint
		if next == "" || next == addr {
			next = c.forget(addr)
		} else {
			// A fresh redirect names the leader; follow it without the
			// delay built up while searching.
			backoff.Reset()
		}
		c.opts.Logger.Debug("retrying request", "op", op.String(), "from", addr, "to", next, "error", err)
		addr = next

		select {
		case <-ctx.Done():
			return kv.Result{}, fmt.Errorf("%s %s: %w", strings.ToLower(command), op, errors.Join(ctx.Err(), err))
		case <-time.After(backoff.Next()):
		}
	}
}

func (c *Client) do(ctx context.Context, addr, command string, payload []byte) ([]byte, error) {
	rc, err := c.conn(addr)
	if err != nil {
		return nil, err
	}
	text, err := rc.Do(ctx, command, payload).Text()
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// classify decides whether err is worth retrying elsewhere. A NOTLEADER
// reply may carry the leader's address.
func classify(err error) (hint string, retry bool) {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		// Transport failure: the node may be down.
		return "", true
	}
	msg := rerr.Error()
	if !strings.HasPrefix(msg, notLeaderPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(msg, notLeaderPrefix)), true
}

// Put stores value under key and returns the previous value.
func (c *Client) Put(ctx context.Context, key, value string) (kv.Result, error) {
	return c.Submit(ctx, kv.Put(key, value))
}

// Get reads key from the leader.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	res, err := c.Submit(ctx, kv.Get(key))
	if err != nil {
		return "", false, err
	}
	return res.Value, res.Found, nil
}

// Delete removes key and returns the previous value.
func (c *Client) Delete(ctx context.Context, key string) (kv.Result, error) {
	return c.Submit(ctx, kv.Delete(key))
}

// Keys lists every key in sorted order.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	res, err := c.Submit(ctx, kv.Keys())
	if err != nil {
		return nil, err
	}
	return res.Keys, nil
}
