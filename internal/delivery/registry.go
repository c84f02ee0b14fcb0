// Package delivery fans processed results out to subscribed websocket
// clients.
//
// The registry tracks live connections and their match subscriptions. A
// connection that fails a send is deregistered on the spot; slow or dead
// clients never hold a broadcast hostage. Registrations expire after a TTL
// unless the client keeps the connection alive.
package delivery

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
)

// Default registry configuration constants.
const (
	defaultConnectionTTL = time.Hour
)

// Conn is the slice of a client connection the registry needs.
type Conn interface {
	// Send delivers one message to the client.
	Send(ctx context.Context, data []byte) error

	// Close tears the connection down.
	Close() error
}

// Message is the envelope delivered to subscribers.
type Message struct {
	Type      string          `json:"type"`
	MatchID   string          `json:"match_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Result reports a broadcast's fan-out: how many subscribers were targeted
// and how many actually received the message.
type Result struct {
	Delivered int `json:"delivered"`
	Attempted int `json:"attempted"`
}

// entry is one registered connection.
type entry struct {
	conn    Conn
	expires time.Time
	subs    map[string]struct{}
}

// Registry tracks connections and their match subscriptions.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*entry
	byMatch map[string]map[string]struct{}

	ttl       time.Duration
	collector *metrics.Collector
	manager   *metrics.Manager
	log       logger.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		conns:   make(map[string]*entry),
		byMatch: make(map[string]map[string]struct{}),
		ttl:     defaultConnectionTTL,
		log:     logger.Named("delivery"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a connection under its ID. Registering an existing ID
// replaces and closes the previous connection.
func (r *Registry) Register(ctx context.Context, connID string, conn Conn) {
	r.mu.Lock()
	if old, ok := r.conns[connID]; ok {
		r.dropLocked(connID, old)
	}
	r.conns[connID] = &entry{
		conn:    conn,
		expires: time.Now().Add(r.ttl),
		subs:    make(map[string]struct{}),
	}
	count := len(r.conns)
	r.mu.Unlock()

	r.updateGauge(count)
	r.log.Debug(ctx, "connection registered", logger.String("conn_id", connID))
}

// Deregister removes and closes a connection. Unknown IDs are a no-op.
func (r *Registry) Deregister(ctx context.Context, connID string) {
	r.mu.Lock()
	e, ok := r.conns[connID]
	if ok {
		r.dropLocked(connID, e)
	}
	count := len(r.conns)
	r.mu.Unlock()

	if ok {
		r.updateGauge(count)
		r.log.Debug(ctx, "connection deregistered", logger.String("conn_id", connID))
	}
}

// Subscribe adds a match subscription for a connection and refreshes its
// TTL.
func (r *Registry) Subscribe(ctx context.Context, connID, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}

	e.subs[matchID] = struct{}{}
	e.expires = time.Now().Add(r.ttl)

	if r.byMatch[matchID] == nil {
		r.byMatch[matchID] = make(map[string]struct{})
	}
	r.byMatch[matchID][connID] = struct{}{}
	return nil
}

// Unsubscribe removes a match subscription.
func (r *Registry) Unsubscribe(ctx context.Context, connID, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}

	delete(e.subs, matchID)
	r.detachLocked(connID, matchID)
	return nil
}

// Touch refreshes a connection's TTL, e.g. on a client ping.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.conns[connID]; ok {
		e.expires = time.Now().Add(r.ttl)
	}
}

// Broadcast delivers a message to every subscriber of a match and reports
// delivered out of attempted. Connections that fail the send are
// deregistered.
func (r *Registry) Broadcast(ctx context.Context, msg Message) Result {
	start := time.Now()

	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error(ctx, "broadcast encode failed", logger.Error(err))
		return Result{}
	}

	r.mu.RLock()
	targets := make(map[string]Conn, len(r.byMatch[msg.MatchID]))
	for connID := range r.byMatch[msg.MatchID] {
		if e, ok := r.conns[connID]; ok {
			targets[connID] = e.conn
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for connID, conn := range targets {
		if err := conn.Send(ctx, data); err != nil {
			r.log.Warn(ctx, "send failed, dropping connection",
				logger.String("conn_id", connID),
				logger.Error(err))
			if r.manager != nil {
				r.manager.RecordBroadcastFailure()
			}
			r.Deregister(ctx, connID)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		if r.collector != nil {
			r.collector.AddGatewayMessages(delivered)
		}
		if r.manager != nil {
			r.manager.RecordBroadcasts(delivered)
		}
	}
	if len(targets) > 0 && r.collector != nil {
		r.collector.RecordLatency(metrics.StageDelivery, time.Since(start))
	}
	return Result{Delivered: delivered, Attempted: len(targets)}
}

// SweepExpired deregisters every connection past its TTL and returns how
// many were dropped.
func (r *Registry) SweepExpired(ctx context.Context) int {
	now := time.Now()

	r.mu.Lock()
	var expired []string
	for connID, e := range r.conns {
		if now.After(e.expires) {
			expired = append(expired, connID)
		}
	}
	for _, connID := range expired {
		r.dropLocked(connID, r.conns[connID])
	}
	count := len(r.conns)
	r.mu.Unlock()

	if len(expired) > 0 {
		r.updateGauge(count)
		r.log.Info(ctx, "expired connections dropped", logger.Int("count", len(expired)))
	}
	return len(expired)
}

// Size returns the number of registered connections.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Subscribers returns the number of connections subscribed to a match.
func (r *Registry) Subscribers(matchID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byMatch[matchID])
}

// dropLocked removes a connection and all its subscriptions. Must be called
// with r.mu held for writing.
func (r *Registry) dropLocked(connID string, e *entry) {
	for matchID := range e.subs {
		r.detachLocked(connID, matchID)
	}
	delete(r.conns, connID)
	_ = e.conn.Close()
}

// detachLocked removes one match index entry. Must be called with r.mu held
// for writing.
func (r *Registry) detachLocked(connID, matchID string) {
	if subs, ok := r.byMatch[matchID]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.byMatch, matchID)
		}
	}
}

func (r *Registry) updateGauge(count int) {
	if r.manager != nil {
		r.manager.UpdateActiveConnections(count)
	}
}
