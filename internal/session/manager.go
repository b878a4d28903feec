package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pn532 "github.com/nfcbridge/core"
)

// Config bounds a Manager's behavior. SessionTimeout and TaggingTimeout map
// directly onto the bridge's environment options; ReaperInterval has no
// environment option and defaults to 5s when unset.
type Config struct {
	SessionTimeout time.Duration
	TaggingTimeout time.Duration
	// DefaultReceiptURL, if non-empty, overrides every caller-supplied
	// receiptUrl. This exists only as the test/debug escape hatch noted in
	// the design notes; production deployments leave it empty.
	DefaultReceiptURL string
	ReaperInterval    time.Duration
}

// DefaultConfig returns the bridge's out-of-the-box timing.
func DefaultConfig() Config {
	return Config{
		SessionTimeout: 30 * time.Second,
		TaggingTimeout: 20 * time.Second,
		ReaperInterval: 5 * time.Second,
	}
}

// Manager owns the session map, the FIFO queue, and the single worker
// goroutine that serializes every operation against the shared controller.
type Manager struct {
	controller pn532.Controller
	config     Config
	log        *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[string]*Session
	queue    []string
	closed   bool

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New builds a Manager around controller. Start must be called before any
// session is processed.
func New(controller pn532.Controller, config Config, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if config.ReaperInterval <= 0 {
		config.ReaperInterval = 5 * time.Second
	}
	return &Manager{
		controller: controller,
		config:     config,
		log:        log,
		sessions:   make(map[string]*Session),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the worker and reaper goroutines. ctx cancellation stops
// both once any in-flight WaitForTag returns naturally.
func (m *Manager) Start(ctx context.Context) {
	go m.runWorker(ctx)
	go m.runReaper(ctx)
}

// CreateSession allocates a Session, enqueues it, and wakes the worker.
func (m *Manager) CreateSession(orderID, receiptURL string) (*Session, error) {
	if orderID == "" {
		return nil, fmt.Errorf("orderId is required")
	}

	url := receiptURL
	if m.config.DefaultReceiptURL != "" {
		url = m.config.DefaultReceiptURL
	}

	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		ReceiptURL: url,
		Status:     StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.config.SessionTimeout),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("session manager is shut down")
	}
	m.sessions[s.ID] = s
	m.queue = append(m.queue, s.ID)
	m.mu.Unlock()

	m.wakeWorker()
	return s.Clone(), nil
}

// GetSession returns a snapshot of the session, if it exists.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// ListSessions returns a snapshot of every live session.
func (m *Manager) ListSessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out
}

// Stats tallies sessions by status.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats Stats
	for _, s := range m.sessions {
		stats.Total++
		switch s.Status {
		case StatusPending:
			stats.Pending++
		case StatusReady:
			stats.Ready++
		case StatusTagging:
			stats.Tagging++
		case StatusCompleted:
			stats.Completed++
		case StatusExpired:
			stats.Expired++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// Shutdown clears the map and queue and stops accepting new sessions. An
// in-flight worker iteration is allowed to finish naturally.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.sessions = make(map[string]*Session)
	m.queue = nil
	m.mu.Unlock()
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Manager) wakeWorker() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// popHead removes and returns the session at the front of the queue, or nil
// if the queue is empty or the session it names was already removed.
func (m *Manager) popHead() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) > 0 {
		id := m.queue[0]
		m.queue = m.queue[1:]
		if s, ok := m.sessions[id]; ok {
			return s
		}
	}
	return nil
}

func (m *Manager) setStatus(s *Session, status Status, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[s.ID]; ok {
		existing.Status = status
		existing.Error = errMsg
		if status.Terminal() {
			now := time.Now()
			existing.CompletedAt = &now
		}
	}
}

// runWorker drains the queue one session at a time, walking the head session
// through ready -> tagging -> terminal and touching the controller at each
// step. Only this goroutine ever calls the controller.
func (m *Manager) runWorker(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-m.wake:
		case <-ticker.C:
		}

		for ctx.Err() == nil {
			s := m.popHead()
			if s == nil {
				break
			}
			m.process(ctx, s)
		}
	}
}

func (m *Manager) process(ctx context.Context, s *Session) {
	if time.Now().After(s.ExpiresAt) {
		m.setStatus(s, StatusExpired, "")
		return
	}

	m.setStatus(s, StatusReady, "")

	ndef, err := pn532.EncodeURI(s.ReceiptURL)
	if err != nil {
		m.setStatus(s, StatusFailed, err.Error())
		return
	}

	ok, err := m.controller.InitAsTarget(ctx, ndef)
	if err != nil || !ok {
		msg := "init_as_target failed"
		if err != nil {
			msg = err.Error()
		}
		m.setStatus(s, StatusFailed, msg)
		m.reinitialize(ctx)
		return
	}

	m.setStatus(s, StatusTagging, "")

	// A tagging wait already underway must run to its own natural timeout
	// even if the service is shutting down: only runWorker's pickup of new
	// sessions stops on ctx cancellation, not a wait already in flight.
	waitCtx, cancel := context.WithTimeout(context.Background(), m.config.TaggingTimeout)
	defer cancel()

	event, err := m.controller.WaitForTag(waitCtx, m.config.TaggingTimeout)
	switch {
	case err != nil:
		m.setStatus(s, StatusFailed, err.Error())
		m.reinitialize(ctx)
	case event == pn532.TagDetected:
		m.setStatus(s, StatusCompleted, "")
	case event == pn532.TagTimeout:
		m.setStatus(s, StatusExpired, "Tagging timeout")
	default:
		m.setStatus(s, StatusFailed, "tag activation reported a protocol syntax error")
		m.reinitialize(ctx)
	}
}

func (m *Manager) reinitialize(ctx context.Context) {
	if err := m.controller.Reinitialize(ctx); err != nil {
		m.log.Warnw("controller reinitialize failed", "error", err)
	}
}

// runReaper removes terminal, expired sessions every ReaperInterval.
func (m *Manager) runReaper(ctx context.Context) {
	ticker := time.NewTicker(m.config.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

func (m *Manager) reap() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.Status.Terminal() && s.ExpiresAt.Before(now) {
			delete(m.sessions, id)
		}
	}
}
