package services

import (
	"sync"
	"sync/atomic"

	"bucket-list-backend/internal/metrics"
	"bucket-list-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultSubscriptionBuffer is the per-subscriber queue length used when none is configured
const DefaultSubscriptionBuffer = 16

// Subscription is one open messageSent stream
type Subscription struct {
	ID     uint64
	UserID string
	// ChatID restricts the stream to one chat when set
	ChatID string

	ch chan *models.Message
}

// Messages returns the channel the hub delivers to. It is closed on Unsubscribe.
func (s *Subscription) Messages() <-chan *models.Message {
	return s.ch
}

func (s *Subscription) wants(msg *models.Message, members map[string]struct{}) bool {
	if s.ChatID != "" && s.ChatID != msg.ChatID {
		return false
	}
	_, ok := members[s.UserID]
	return ok
}

// HubStats is a snapshot of hub usage
type HubStats struct {
	Subscriptions int `json:"subscriptions"`
	Users         int `json:"users"`
}

// MessageHub fans chat messages out to subscribed users
type MessageHub struct {
	mu          sync.RWMutex
	subscribers map[uint64]*Subscription
	nextID      uint64
	bufferSize  int
	metrics     *metrics.Metrics
}

// NewMessageHub creates a new message hub
func NewMessageHub(bufferSize int, m *metrics.Metrics) *MessageHub {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriptionBuffer
	}
	return &MessageHub{
		subscribers: make(map[uint64]*Subscription),
		bufferSize:  bufferSize,
		metrics:     m,
	}
}

// Subscribe registers a stream for userID, optionally limited to chatID
func (h *MessageHub) Subscribe(userID, chatID string) *Subscription {
	sub := &Subscription{
		ID:     atomic.AddUint64(&h.nextID, 1),
		UserID: userID,
		ChatID: chatID,
		ch:     make(chan *models.Message, h.bufferSize),
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	h.metrics.ActiveSubscriptions.Inc()
	log.Info().
		Uint64("subscription_id", sub.ID).
		Str("user_id", userID).
		Str("chat_id", chatID).
		Msg("Message subscription registered")

	return sub
}

// Unsubscribe removes the subscription and closes its channel. Unknown IDs are ignored.
func (h *MessageHub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	close(sub.ch)
	delete(h.subscribers, id)

	h.metrics.ActiveSubscriptions.Dec()
	log.Info().
		Uint64("subscription_id", id).
		Str("user_id", sub.UserID).
		Msg("Message subscription unregistered")
}

// Publish delivers msg to every subscriber that is one of memberIDs, without blocking.
// A subscriber whose buffer is full misses the message. Returns the number of deliveries.
func (h *MessageHub) Publish(msg *models.Message, memberIDs []string) int {
	members := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subscribers {
		if !sub.wants(msg, members) {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
			h.metrics.MessagesDropped.Inc()
			log.Warn().
				Uint64("subscription_id", sub.ID).
				Str("user_id", sub.UserID).
				Str("message_id", msg.ID).
				Msg("Subscriber is slow, message dropped")
		}
	}
	return delivered
}

// IsOnline reports whether the user has at least one open subscription
func (h *MessageHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if sub.UserID == userID {
			return true
		}
	}
	return false
}

// Stats returns the number of open subscriptions and distinct subscribed users
func (h *MessageHub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make(map[string]struct{})
	for _, sub := range h.subscribers {
		users[sub.UserID] = struct{}{}
	}
	return HubStats{Subscriptions: len(h.subscribers), Users: len(users)}
}

// Close ends every open subscription
func (h *MessageHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, id)
		h.metrics.ActiveSubscriptions.Dec()
	}
}
