// Package health tracks whether the on-premises edge server is reachable
// from the handheld. The scanner's transport reads the monitor's status on
// every call to decide where the call goes.
package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/api"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/config"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
)

// Default polling parameters
const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 2 * time.Second
)

// Mode is where backend calls should go
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

// Status is the outcome of the latest probe
type Status struct {
	Mode                Mode      `json:"mode"`
	BaseURL             string    `json:"base_url,omitempty"`
	CheckedAt           time.Time `json:"checked_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
}

// Monitor polls the edge server's health endpoint. Until the first
// successful probe every call goes to the cloud.
type Monitor struct {
	edgeURL  string
	interval time.Duration
	timeout  time.Duration
	client   *http.Client
	logger   *logger.Logger

	mu     sync.RWMutex
	status Status

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor for the edge server in cfg. An empty URL
// pins the monitor to cloud mode.
func NewMonitor(cfg config.EdgeConfig, log *logger.Logger) *Monitor {
	interval := cfg.HealthInterval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := cfg.HealthTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{
		edgeURL:  strings.TrimRight(cfg.URL, "/"),
		interval: interval,
		timeout:  timeout,
		client:   &http.Client{},
		logger:   log.WithComponent("edge-monitor"),
		status:   Status{Mode: ModeCloud},
	}
}

// Status returns the latest probe result
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Start probes once and then every interval until Stop is called or ctx is
// done. Calling Start on a running monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	m.Check(ctx)

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}(m.done)
}

// Stop ends polling and waits for the polling goroutine to exit
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
}

// Check runs one probe and records the result
func (m *Monitor) Check(ctx context.Context) Status {
	err := m.probe(ctx)

	m.mu.Lock()
	previous := m.status.Mode
	next := Status{CheckedAt: time.Now().UTC()}
	if err == nil {
		next.Mode = ModeLocal
		next.BaseURL = m.edgeURL
	} else {
		next.Mode = ModeCloud
		next.ConsecutiveFailures = m.status.ConsecutiveFailures + 1
		next.LastError = err.Error()
	}
	m.status = next
	m.mu.Unlock()

	if previous != next.Mode {
		if next.Mode == ModeLocal {
			m.logger.Info().Str("edge_url", m.edgeURL).Msg("edge server reachable, using local backend")
		} else {
			m.logger.Warn().Err(err).Str("edge_url", m.edgeURL).Msg("edge server unreachable, using cloud backend")
		}
	}
	return next
}

func (m *Monitor) probe(ctx context.Context) error {
	if m.edgeURL == "" {
		return fmt.Errorf("no edge server configured")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.edgeURL+api.HealthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
