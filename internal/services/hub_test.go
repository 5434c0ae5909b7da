package services

import (
	"testing"

	"bucket-list-backend/internal/metrics"
	"bucket-list-backend/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToMembersOnly(t *testing.T) {
	m := metrics.New()
	hub := NewMessageHub(4, m)

	all := hub.Subscribe("u1", "")
	onlyB := hub.Subscribe("u1", "chat-b")
	outsider := hub.Subscribe("u2", "")

	n := hub.Publish(&models.Message{ID: "m1", ChatID: "chat-a"}, []string{"u1", "u3"})
	assert.Equal(t, 1, n)

	require.Len(t, all.Messages(), 1)
	assert.Equal(t, "m1", (<-all.Messages()).ID)
	assert.Len(t, onlyB.Messages(), 0)
	assert.Len(t, outsider.Messages(), 0)

	n = hub.Publish(&models.Message{ID: "m2", ChatID: "chat-b"}, []string{"u1"})
	assert.Equal(t, 2, n)
	assert.Equal(t, "m2", (<-onlyB.Messages()).ID)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	m := metrics.New()
	hub := NewMessageHub(2, m)
	sub := hub.Subscribe("u1", "")

	for i := 0; i < 5; i++ {
		hub.Publish(&models.Message{ID: "m", ChatID: "c"}, []string{"u1"})
	}

	assert.Len(t, sub.Messages(), 2)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MessagesDropped))
}

func TestHubPreservesPublishOrder(t *testing.T) {
	hub := NewMessageHub(8, metrics.New())
	sub := hub.Subscribe("u1", "c")

	for _, id := range []string{"a", "b", "c"} {
		hub.Publish(&models.Message{ID: id, ChatID: "c"}, []string{"u1"})
	}

	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, (<-sub.Messages()).ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestHubUnsubscribeAndStats(t *testing.T) {
	m := metrics.New()
	hub := NewMessageHub(0, m)

	a := hub.Subscribe("u1", "")
	b := hub.Subscribe("u1", "c")
	hub.Subscribe("u2", "")

	assert.Equal(t, HubStats{Subscriptions: 3, Users: 2}, hub.Stats())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveSubscriptions))
	assert.True(t, hub.IsOnline("u1"))

	hub.Unsubscribe(a.ID)
	hub.Unsubscribe(a.ID)
	assert.True(t, hub.IsOnline("u1"))

	hub.Unsubscribe(b.ID)
	assert.False(t, hub.IsOnline("u1"))
	assert.Equal(t, HubStats{Subscriptions: 1, Users: 1}, hub.Stats())

	_, open := <-b.Messages()
	assert.False(t, open)

	hub.Close()
	assert.Equal(t, 0, hub.Stats().Subscriptions)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSubscriptions))
}
