package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parisxmas/OxiDB/OxiForms/internal/oxidb"
)

const (
	dialTimeout       = 5 * time.Second
	keepaliveInterval = 10 * time.Second
)

// Pool is a round-robin connection pool for OxiDB with auto-reconnect.
type Pool struct {
	host    string
	port    int
	clients []*oxidb.Client
	mu      sync.RWMutex
	idx     uint64
	stop    chan struct{}
	once    sync.Once
}

// NewPool creates a pool of size OxiDB connections and starts the keepalive loop.
func NewPool(ctx context.Context, host string, port, size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		host:    host,
		port:    port,
		clients: make([]*oxidb.Client, size),
		stop:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := p.dial(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	go p.keepalive()
	return p, nil
}

func (p *Pool) dial(ctx context.Context) (*oxidb.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return oxidb.Connect(ctx, p.host, p.port)
}

// Get returns the next client in round-robin order.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[n%uint64(len(p.clients))]
}

// Ping checks one pooled connection.
func (p *Pool) Ping(ctx context.Context) error {
	_, err := p.Get().Ping(ctx)
	return err
}

// reconnect replaces a broken client at index i.
func (p *Pool) reconnect(i int) {
	c, err := p.dial(context.Background())
	if err != nil {
		slog.Error("pool: reconnect failed", slog.Int("client", i), slog.String("error", err.Error()))
		return
	}
	p.mu.Lock()
	old := p.clients[i]
	p.clients[i] = c
	p.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (p *Pool) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.RLock()
			clients := append([]*oxidb.Client(nil), p.clients...)
			p.mu.RUnlock()
			for i, c := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
				_, err := c.Ping(ctx)
				cancel()
				if err != nil {
					slog.Warn("pool: ping failed, reconnecting", slog.Int("client", i), slog.String("error", err.Error()))
					p.reconnect(i)
				}
			}
		}
	}
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, c := range p.clients {
			if c != nil {
				c.Close()
			}
		}
	})
}
