// Package ssh provides the SSH transport: command execution over
// multiplexed sessions and file transfer over SFTP. Live connections are
// cached per connection configuration and shared by every resource
// pointing at the same endpoint.
package ssh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/shellform/shellform/pkg/transports"
)

func init() {
	transports.Register(transports.SchemeSSH, func(ctx context.Context, cfg transports.Config) (transports.Transport, error) {
		return defaultPool.get(ctx, cfg)
	})
}

// defaultPool caches live clients keyed by connection configuration. The
// cache lives for the process; it is not released per-resource.
var defaultPool = &clientPool{clients: map[string]*Client{}}

// clientPool is a lookup-or-connect cache guarded by a single mutex.
type clientPool struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func (p *clientPool) get(ctx context.Context, cfg transports.Config) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := cfg.CacheKey()
	if c, ok := p.clients[key]; ok && c.alive() {
		return c, nil
	}

	c, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.clients[key] = c
	return c, nil
}

// Client is a live SSH connection implementing transports.Transport.
type Client struct {
	cfg transports.Config

	mu     sync.Mutex
	client *ssh.Client
}

// connect dials the endpoint described by cfg.
func connect(ctx context.Context, cfg transports.Config) (*Client, error) {
	clientConfig, err := buildClientConfig(cfg)
	if err != nil {
		return nil, &transports.TransportError{Op: "connect", Err: err}
	}

	addr := address(cfg)

	// ssh.Dial has no context support; race it against ctx.
	type dialResult struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialResult, 1)
	go func() {
		client, err := ssh.Dial("tcp", addr, clientConfig)
		ch <- dialResult{client: client, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &transports.TransportError{Op: "connect", Err: ctx.Err()}
	case res := <-ch:
		if res.err != nil {
			return nil, &transports.TransportError{Op: "connect", Err: res.err}
		}
		return &Client{cfg: cfg, client: res.client}, nil
	}
}

// alive probes the connection with a no-op session.
func (c *Client) alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return false
	}
	session, err := c.client.NewSession()
	if err != nil {
		return false
	}
	defer session.Close()
	return session.Run("true") == nil
}

// Scheme implements transports.Transport.
func (c *Client) Scheme() string { return transports.SchemeSSH }

// Close tears the connection down. The pool does not call this; it is for
// process teardown.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func address(cfg transports.Config) string {
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", cfg.Host, port)
}

func connectTimeout(cfg transports.Config) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return 30 * time.Second
}
