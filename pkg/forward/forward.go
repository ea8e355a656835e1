// Package forward republishes warning and error entries to a Redis pub/sub
// channel so that alerts from many processes can be watched in one place.
package forward

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/HorseArcher567/applog/pkg/xlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	forwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "applog",
		Name:      "alerts_forwarded_total",
		Help:      "Alerts published to the forward channel.",
	})

	forwardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "applog",
		Name:      "alert_forward_failures_total",
		Help:      "Alerts that could not be published.",
	})
)

// Publisher delivers a payload to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// Message is the JSON document published for every alert.
type Message struct {
	App  string `json:"app,omitempty"`
	Host string `json:"host,omitempty"`
	xlog.Entry
}

// Option customizes a Forwarder.
type Option func(f *Forwarder)

// WithPublisher replaces the Redis publisher.
func WithPublisher(p Publisher) Option {
	return func(f *Forwarder) {
		f.pub = p
	}
}

// Forwarder subscribes to a Logger's alerts and publishes each one.
type Forwarder struct {
	config Config
	logs   *xlog.Logger
	pub    Publisher
	host   string
	log    *slog.Logger
	ready  chan struct{}
	once   sync.Once

	sent    atomic.Uint64
	failed  atomic.Uint64
	failing atomic.Bool
}

// New creates a forwarder. Without WithPublisher it connects to Redis lazily
// on the first publish.
func New(logs *xlog.Logger, cfg Config, opts ...Option) *Forwarder {
	cfg = cfg.normalize()
	host, _ := os.Hostname()

	f := &Forwarder{
		config: cfg,
		logs:   logs,
		host:   host,
		log:    logs.With("component", "forward").Logger,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.pub == nil {
		f.pub = NewRedisPublisher(cfg)
	}
	return f
}

// Run forwards alerts until ctx is done or the logger is closed.
func (f *Forwarder) Run(ctx context.Context) error {
	sub := f.logs.Subscribe(f.config.Buffer)
	defer sub.Close()
	f.once.Do(func() { close(f.ready) })

	f.log.Info("forwarding alerts", "addr", f.config.Addr, "channel", f.config.Channel)
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.C():
			if !ok {
				return nil
			}
			f.forward(ctx, e)
		}
	}
}

// Ready is closed once Run has subscribed. Alerts emitted before that are
// not forwarded.
func (f *Forwarder) Ready() <-chan struct{} {
	return f.ready
}

// Close releases the publisher.
func (f *Forwarder) Close() error {
	return f.pub.Close()
}

// Stats returns how many alerts were published and how many failed.
func (f *Forwarder) Stats() (sent, failed uint64) {
	return f.sent.Load(), f.failed.Load()
}

// forward reports outages at info level: a warning here would itself be
// forwarded.
func (f *Forwarder) forward(ctx context.Context, e xlog.Entry) {
	payload, err := json.Marshal(Message{App: f.config.App, Host: f.host, Entry: e})
	if err != nil {
		f.log.Info("encode alert failed", "error", err)
		return
	}

	pctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	if err := f.pub.Publish(pctx, f.config.Channel, payload); err != nil {
		f.failed.Add(1)
		forwardFailures.Inc()
		if f.failing.CompareAndSwap(false, true) {
			f.log.Info("alert forwarding unavailable", "channel", f.config.Channel, "error", err)
		}
		return
	}

	f.sent.Add(1)
	forwarded.Inc()
	if f.failing.CompareAndSwap(true, false) {
		f.log.Info("alert forwarding recovered", "channel", f.config.Channel)
	}
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher publishes with PUBLISH on a go-redis client.
func NewRedisPublisher(cfg Config) Publisher {
	cfg = cfg.normalize()
	return &redisPublisher{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		}),
	}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
