package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bucket-list-backend/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Health states reported by HealthMonitor
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthUnknown  = "unknown"
)

const healthCheckTimeout = 5 * time.Second

// Pinger is anything whose reachability can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus is the result of the last health check
type HealthStatus struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
	Error     string    `json:"error,omitempty"`
	Hub       HubStats  `json:"hub"`
}

// HealthMonitor periodically pings the store and records the result
type HealthMonitor struct {
	cron    *cron.Cron
	store   Pinger
	hub     *MessageHub
	metrics *metrics.Metrics

	mu   sync.RWMutex
	last HealthStatus
}

// NewHealthMonitor schedules the check with a cron spec such as "@every 30s"
func NewHealthMonitor(store Pinger, hub *MessageHub, m *metrics.Metrics, schedule string) (*HealthMonitor, error) {
	h := &HealthMonitor{
		cron:    cron.New(cron.WithSeconds()),
		store:   store,
		hub:     hub,
		metrics: m,
		last:    HealthStatus{Status: HealthUnknown},
	}

	if _, err := h.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()
		h.Check(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid health schedule %q: %w", schedule, err)
	}

	return h, nil
}

// Check pings the store now and records the result
func (h *HealthMonitor) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    HealthOK,
		CheckedAt: time.Now().UTC(),
		Hub:       h.hub.Stats(),
	}
	if err := h.store.Ping(ctx); err != nil {
		status.Status = HealthDegraded
		status.Error = err.Error()
		h.metrics.StoreUp.Set(0)
		log.Error().Err(err).Msg("Store health check failed")
	} else {
		h.metrics.StoreUp.Set(1)
		log.Debug().
			Int("subscriptions", status.Hub.Subscriptions).
			Int("users", status.Hub.Users).
			Msg("Health check passed")
	}

	h.mu.Lock()
	h.last = status
	h.mu.Unlock()

	return status
}

// Status returns the last recorded result
func (h *HealthMonitor) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Start runs an initial check and starts the schedule
func (h *HealthMonitor) Start(ctx context.Context) {
	h.Check(ctx)
	h.cron.Start()
}

// Stop stops the schedule and waits for a running check
func (h *HealthMonitor) Stop() {
	<-h.cron.Stop().Done()
}
