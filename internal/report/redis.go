package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"tabot/internal/strategy"
)

// RedisConfig configures the pub/sub publisher.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int

	// Prefix of every channel; events go to "<prefix>:<strategy>:<type>".
	Prefix string

	MaxFailures  int
	ResetTimeout time.Duration

	// BufferSize bounds the events held while Redis is unreachable.
	BufferSize int
}

func (c *RedisConfig) defaults() {
	if c.Prefix == "" {
		c.Prefix = "tabot"
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.ResetTimeout == 0 {
		c.ResetTimeout = 10 * time.Second
	}
	if c.BufferSize == 0 {
		c.BufferSize = 1000
	}
}

// ConnectRedis creates a client and pings the server.
func ConnectRedis(cfg RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	slog.Info("redis connected", "addr", cfg.Addr)
	return client, nil
}

type pending struct {
	channel string
	payload []byte
}

// Publisher pushes events to Redis pub/sub from its own goroutine. While the
// breaker is open events are held in a bounded buffer, oldest dropped
// first, and flushed once a publish succeeds again.
type Publisher struct {
	client *goredis.Client
	cb     *CircuitBreaker
	prefix string
	queue  chan pending

	mu      sync.Mutex
	buffer  []pending
	maxBuf  int
	seq     int64
	dropped int64

	// OnPublish, if set, observes every publish attempt.
	OnPublish func(err error)
}

// NewPublisher wraps client. Call Run to start publishing.
func NewPublisher(client *goredis.Client, cfg RedisConfig) *Publisher {
	cfg.defaults()
	p := &Publisher{
		client: client,
		cb:     NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout),
		prefix: cfg.Prefix,
		queue:  make(chan pending, cfg.BufferSize),
		maxBuf: cfg.BufferSize,
	}
	p.cb.OnStateChange = func(from, to State) {
		slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
	}
	return p
}

// Breaker exposes the circuit breaker for health checks.
func (p *Publisher) Breaker() *CircuitBreaker { return p.cb }

// OnBreakerChange chains fn after the breaker's existing transition callback.
func (p *Publisher) OnBreakerChange(fn func(from, to State)) {
	prev := p.cb.OnStateChange
	p.cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		fn(from, to)
	}
}

// Dropped returns how many events were discarded.
func (p *Publisher) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Channel returns the pub/sub channel of an event.
func (p *Publisher) Channel(strategyName, typ string) string {
	return p.prefix + ":" + strategyName + ":" + typ
}

// Run publishes queued events until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-p.queue:
			p.send(ctx, m)
		}
	}
}

func (p *Publisher) send(ctx context.Context, m pending) {
	err := p.cb.Execute(func() error {
		return p.client.Publish(ctx, m.channel, m.payload).Err()
	})
	if p.OnPublish != nil {
		p.OnPublish(err)
	}
	if err != nil {
		p.hold(m)
		return
	}
	p.flush(ctx)
}

func (p *Publisher) hold(m pending) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buffer) >= p.maxBuf {
		p.buffer = p.buffer[1:]
		p.dropped++
	}
	p.buffer = append(p.buffer, m)
}

// flush republishes held events in order, stopping at the first failure.
func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	held := p.buffer
	p.buffer = nil
	p.mu.Unlock()
	if len(held) == 0 {
		return
	}

	for i, m := range held {
		err := p.cb.Execute(func() error {
			return p.client.Publish(ctx, m.channel, m.payload).Err()
		})
		if err != nil {
			p.mu.Lock()
			p.buffer = append(held[i:], p.buffer...)
			p.mu.Unlock()
			return
		}
	}
	slog.Info("redis buffer flushed", "events", len(held))
}

func (p *Publisher) enqueue(typ, strategyName string, v interface{}) {
	payload, err := p.encode(typ, strategyName, v)
	if err != nil {
		slog.Error("redis event failed", "type", typ, "error", err)
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		return
	}
	select {
	case p.queue <- pending{channel: p.Channel(strategyName, typ), payload: payload}:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
	}
}

func (p *Publisher) encode(typ, strategyName string, v interface{}) ([]byte, error) {
	ev, err := newEvent(typ, strategyName, v)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.seq++
	ev.Seq = p.seq
	p.mu.Unlock()
	return json.Marshal(ev)
}

func (p *Publisher) Snapshot(ctx context.Context, s strategy.Snapshot) {
	p.enqueue(TypeSnapshot, s.Strategy, s)
}

func (p *Publisher) Progress(ctx context.Context, pr strategy.Progress) {
	p.enqueue(TypeProgress, pr.Strategy, pr)
}

func (p *Publisher) Decision(ctx context.Context, d strategy.Decision) {
	p.enqueue(TypeDecision, d.Strategy, d)
}
