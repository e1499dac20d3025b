package pubsub

import (
	"sync"

	"github.com/kidsqa/realtime-gateway/internal/observability"
)

// Registry tracks which sessions are subscribed to which channels. The
// channel index and the per-session subscription sets are kept in lockstep:
// a session appears in a channel's member map exactly when the channel
// appears in the session's subscription set. All mutation goes through the
// Registry so the two views cannot drift.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[string]*Session

	logger  observability.Logger
	metrics *observability.Metrics
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger observability.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistryMetrics sets the metrics collector.
func WithRegistryMetrics(metrics *observability.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		channels: make(map[string]map[string]*Session),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe adds a session to a channel, creating the channel on first
// use. Subscribing twice is a no-op; the second call reports false.
func (r *Registry) Subscribe(s *Session, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[channel]
	if !ok {
		members = make(map[string]*Session)
		r.channels[channel] = members
	}
	if _, ok := members[s.ID()]; ok {
		return false
	}

	members[s.ID()] = s
	s.addSubscription(channel)
	if r.metrics != nil {
		r.metrics.SubscriptionAdded()
	}

	r.logger.Debug("session subscribed",
		observability.String("connection_id", s.ID()),
		observability.String("channel", channel),
		observability.Int("members", len(members)),
	)
	return true
}

// Unsubscribe removes a session from a channel. An empty channel is
// removed from the index. Unsubscribing from a channel the session never
// joined reports false.
func (r *Registry) Unsubscribe(s *Session, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribeLocked(s, channel)
}

func (r *Registry) unsubscribeLocked(s *Session, channel string) bool {
	members, ok := r.channels[channel]
	if !ok {
		return false
	}
	if _, ok := members[s.ID()]; !ok {
		return false
	}

	delete(members, s.ID())
	if len(members) == 0 {
		delete(r.channels, channel)
	}
	s.removeSubscription(channel)
	if r.metrics != nil {
		r.metrics.SubscriptionRemoved(1)
	}

	r.logger.Debug("session unsubscribed",
		observability.String("connection_id", s.ID()),
		observability.String("channel", channel),
	)
	return true
}

// RemoveFromAllChannels removes a session from every channel it joined,
// pruning channels left empty. Safe to call for a session that never
// subscribed anywhere. Returns the number of subscriptions removed.
func (r *Registry) RemoveFromAllChannels(s *Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	channels := s.clearSubscriptions()
	for _, channel := range channels {
		members, ok := r.channels[channel]
		if !ok {
			continue
		}
		delete(members, s.ID())
		if len(members) == 0 {
			delete(r.channels, channel)
		}
	}

	if r.metrics != nil && len(channels) > 0 {
		r.metrics.SubscriptionRemoved(len(channels))
	}
	if len(channels) > 0 {
		r.logger.Debug("session removed from all channels",
			observability.String("connection_id", s.ID()),
			observability.Int("channels", len(channels)),
		)
	}
	return len(channels)
}

// Broadcast sends one encoded frame to every current subscriber of a
// channel. The subscriber set is snapshotted up front, so sessions joining
// mid-broadcast are not included. A failed write skips that subscriber and
// the broadcast continues; the connection's own read loop handles teardown.
// Returns the number of successful deliveries.
func (r *Registry) Broadcast(channel string, data []byte) int {
	var done func()
	if r.metrics != nil {
		done = r.metrics.BroadcastStarted(string(ClassOf(channel)))
		defer done()
	}

	r.mu.RLock()
	members := r.channels[channel]
	subscribers := make([]*Session, 0, len(members))
	for _, s := range members {
		subscribers = append(subscribers, s)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, s := range subscribers {
		if err := s.Send(data); err != nil {
			if r.metrics != nil {
				r.metrics.DeliveryResult("skipped")
			}
			r.logger.Warn("broadcast delivery failed",
				observability.String("connection_id", s.ID()),
				observability.String("channel", channel),
				observability.Error(err),
			)
			continue
		}
		delivered++
		if r.metrics != nil {
			r.metrics.DeliveryResult("delivered")
		}
	}
	return delivered
}

// SubscriberCount returns the number of sessions subscribed to a channel.
func (r *Registry) SubscriberCount(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// ChannelCount returns the number of channels with at least one subscriber.
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Channels returns a snapshot of all channel names with subscribers.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	channels := make([]string, 0, len(r.channels))
	for channel := range r.channels {
		channels = append(channels, channel)
	}
	return channels
}
