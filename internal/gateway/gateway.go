package gateway

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quic-go/quic-go"

	"github.com/gesturesync/gesturesync/internal/core/events/bus"
	"github.com/gesturesync/gesturesync/internal/core/gesture"
	"github.com/gesturesync/gesturesync/internal/core/observability/log"
	"github.com/gesturesync/gesturesync/internal/core/state"
	"github.com/gesturesync/gesturesync/pkg/concurrent"
)

// Session roles. Sources feed touch frames into a target; consumers receive
// result frames whenever the target's swipe state changes.
const (
	RoleSource   = "source"
	RoleConsumer = "consumer"
)

// Gateway is the network front door for remote touch sources and consumers.
// It republishes inbound touch frames onto the bus topic named by the
// source's target, runs one detector per target and pushes swipe results
// back to subscribed consumers.
type Gateway struct {
	// Core components
	config   Config
	logger   log.Log
	bus      bus.EventBus
	upgrader websocket.Upgrader

	// Per-target detectors
	targets *state.Registry[*targetState]

	// Session management
	sessions     sync.Map // map[string]*Session
	sessionCount int64    // atomic

	// Gateway state
	running int32 // atomic bool
	closed  int32 // atomic bool

	// Background workers
	workerGroup sync.WaitGroup
	stopChan    chan struct{}

	httpServer   *http.Server
	quicListener *quic.Listener
}

// targetState ties one binding target to its detector and consumer set. The
// detector is created when the first session for the target arrives and torn
// down when the last one leaves.
type targetState struct {
	target      string
	detector    *gesture.Detector
	cancelWatch func()
	refs        int64    // atomic
	consumers   sync.Map // map[string]*Session
}

// Session represents one connected touch source or consumer.
type Session struct {
	ID          string
	Target      string
	Role        string
	ConnectedAt time.Time
	LastSeen    int64 // atomic unix timestamp
	Active      int32 // atomic bool

	writeMu sync.Mutex
	ws      *websocket.Conn
	quic    *quic.Conn
}

func (s *Session) touch() {
	atomic.StoreInt64(&s.LastSeen, time.Now().Unix())
}

// sendJSON writes one JSON frame to a websocket session. Writes are
// serialized per session.
func (s *Session) sendJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ws.WriteJSON(v)
}

func (s *Session) close() error {
	atomic.StoreInt32(&s.Active, 0)
	if s.ws != nil {
		return s.ws.Close()
	}
	if s.quic != nil {
		return s.quic.CloseWithError(0, "session closed")
	}
	return nil
}

// NewGateway creates a new gateway. A nil bus creates a private one.
func NewGateway(config Config, b bus.EventBus) *Gateway {
	if b == nil {
		b = bus.New()
	}

	logger := log.New(config.LogLevel)

	g := &Gateway{
		config:  config,
		logger:  logger.With(log.String("component", "gateway")),
		bus:     b,
		targets: state.NewRegistry[*targetState](0),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		stopChan: make(chan struct{}),
	}

	g.logger.Info("Gateway created",
		log.String("listen_addr", config.ListenAddr),
		log.Int("max_clients", config.MaxClients))

	return g
}

// Start starts the gateway listeners and background workers.
func (g *Gateway) Start(ctx context.Context) error {
	if atomic.LoadInt32(&g.closed) == 1 {
		return ErrGatewayClosed
	}
	if !atomic.CompareAndSwapInt32(&g.running, 0, 1) {
		return ErrGatewayAlreadyRunning
	}

	if err := g.config.Validate(); err != nil {
		atomic.StoreInt32(&g.running, 0)
		return err
	}

	g.logger.Info("Starting gateway")

	mux := http.NewServeMux()
	mux.HandleFunc("/touch", g.handleTouch)
	g.httpServer = &http.Server{
		Addr:    g.config.ListenAddr,
		Handler: mux,
	}

	go func() {
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.logger.Error("HTTP listener failed", log.Error(err))
		}
	}()

	if g.config.QUICListenAddr != "" {
		if err := g.startQUIC(ctx); err != nil {
			atomic.StoreInt32(&g.running, 0)
			_ = g.httpServer.Shutdown(context.Background())
			g.logger.Error("Failed to start QUIC listener", log.Error(err))
			return err
		}
	}

	g.startWorkers()

	g.logger.Info("Gateway started successfully")
	return nil
}

// Stop stops the gateway and disconnects all sessions.
func (g *Gateway) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&g.running, 1, 0) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("Stopping gateway")

	close(g.stopChan)

	if g.httpServer != nil {
		_ = g.httpServer.Shutdown(ctx)
	}
	if g.quicListener != nil {
		_ = g.quicListener.Close()
	}

	g.sessions.Range(func(_, value any) bool {
		if session, ok := value.(*Session); ok {
			_ = session.close()
		}
		return true
	})

	g.targets.Range(func(name string, ts *targetState) bool {
		if _, ok := g.targets.Delete(name); ok {
			ts.cancelWatch()
			_ = ts.detector.Close()
		}
		return true
	})

	g.workerGroup.Wait()

	g.logger.Info("Gateway stopped")
	return nil
}

// Close closes the gateway and releases all resources.
func (g *Gateway) Close() error {
	if !atomic.CompareAndSwapInt32(&g.closed, 0, 1) {
		return nil // Already closed
	}
	if atomic.LoadInt32(&g.running) == 1 {
		_ = g.Stop(context.Background())
	}
	return nil
}

// Bus returns the event bus the gateway publishes touch events on.
func (g *Gateway) Bus() bus.EventBus {
	return g.bus
}

// acquireTarget returns the target state for a binding target, creating the
// detector on first use. Every acquire must be paired with a releaseTarget.
// The reference is taken while the registry shard lock is held, so a release
// racing to zero either sees the new reference or is fully ordered before
// this lookup.
func (g *Gateway) acquireTarget(target string) *targetState {
	ts, created := g.targets.GetOrCreateAnd(target, func() *targetState {
		cfg := g.config.Gesture
		if target == bus.DocumentTopic {
			cfg.UseDocument = true
			cfg.ExternalTarget = ""
		} else {
			cfg.UseDocument = false
			cfg.ExternalTarget = target
		}

		det, err := gesture.New(cfg, g.bus, g.logger)
		if err != nil {
			g.logger.Error("Failed to create detector",
				log.String("target", target), log.Error(err))
			return nil
		}

		entry := &targetState{target: target, detector: det}
		entry.cancelWatch = det.Result().OnChange(func(_, _ gesture.SwipeResult) {
			g.broadcastResult(entry)
		})
		return entry
	}, func(entry *targetState) {
		if entry != nil {
			atomic.AddInt64(&entry.refs, 1)
		}
	})
	if ts == nil {
		g.targets.Delete(target)
		return nil
	}

	if created {
		g.logger.Info("Detector created for target",
			log.String("target", target),
			log.String("binding", ts.detector.Binding().Kind.String()))
	}
	return ts
}

// releaseTarget drops one reference; the last session for a target tears its
// detector down. Deletion re-checks the count under the shard lock, so an
// acquire that slipped in after the decrement keeps the entry alive.
func (g *Gateway) releaseTarget(ts *targetState) {
	if atomic.AddInt64(&ts.refs, -1) != 0 {
		return
	}
	removed, ok := g.targets.DeleteIf(ts.target, func(cur *targetState) bool {
		return cur == ts && atomic.LoadInt64(&ts.refs) == 0
	})
	if ok {
		removed.cancelWatch()
		_ = removed.detector.Close()
		g.logger.Info("Detector released", log.String("target", ts.target))
	}
}

// broadcastResult fans the current swipe state of a target out to all of its
// consumers.
func (g *Gateway) broadcastResult(ts *targetState) {
	frame := newResultFrame(ts.target, ts.detector.Result().Get(), ts.detector.Result().Version())

	var consumers []*Session
	ts.consumers.Range(func(_, value any) bool {
		if session, ok := value.(*Session); ok {
			consumers = append(consumers, session)
		}
		return true
	})
	if len(consumers) == 0 {
		return
	}

	concurrent.FanOut(consumers, func(s *Session) error {
		if err := s.sendJSON(frame); err != nil {
			g.logger.Error("Failed to send result frame",
				log.String("session_id", s.ID), log.Error(err))
			return err
		}
		s.touch()
		return nil
	})
}

// dropSession removes a session from all bookkeeping. Safe to call once per
// session, from the session's read loop.
func (g *Gateway) dropSession(session *Session, ts *targetState) {
	atomic.StoreInt32(&session.Active, 0)
	g.sessions.Delete(session.ID)
	atomic.AddInt64(&g.sessionCount, -1)
	ts.consumers.Delete(session.ID)
	_ = session.close()
	g.releaseTarget(ts)

	g.logger.Info("Session disconnected",
		log.String("session_id", session.ID),
		log.String("role", session.Role),
		log.Int64("total_sessions", atomic.LoadInt64(&g.sessionCount)))
}

// GetStats returns gateway statistics.
func (g *Gateway) GetStats() Stats {
	return Stats{
		Sessions: atomic.LoadInt64(&g.sessionCount),
		Targets:  g.targets.Len(),
		Running:  atomic.LoadInt32(&g.running) == 1,
	}
}

// Stats contains gateway statistics.
type Stats struct {
	Sessions int64
	Targets  int
	Running  bool
}

// startWorkers starts background worker goroutines.
func (g *Gateway) startWorkers() {
	g.workerGroup.Add(1)

	// Health monitor
	go func() {
		defer g.workerGroup.Done()
		g.healthMonitor()
	}()
}

// healthMonitor drops sessions idle past the client timeout.
func (g *Gateway) healthMonitor() {
	g.logger.Debug("Health monitor started")

	ticker := time.NewTicker(g.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.performHealthChecks()
		case <-g.stopChan:
			g.logger.Debug("Health monitor stopped")
			return
		}
	}
}

func (g *Gateway) performHealthChecks() {
	now := time.Now().Unix()
	timeoutSeconds := int64(g.config.ClientTimeout.Seconds())

	var stale []*Session
	g.sessions.Range(func(_, value any) bool {
		session := value.(*Session)
		if now-atomic.LoadInt64(&session.LastSeen) > timeoutSeconds {
			stale = append(stale, session)
		}
		return true
	})

	// Closing the connection makes the session's read loop exit and clean
	// up after itself.
	for _, session := range stale {
		g.logger.Info("Disconnecting inactive session",
			log.String("session_id", session.ID))
		_ = session.close()
	}

	if len(stale) > 0 {
		g.logger.Info("Health check completed",
			log.Int("disconnected_sessions", len(stale)),
			log.Int64("active_sessions", atomic.LoadInt64(&g.sessionCount)))
	}
}

// newSession allocates session bookkeeping shared by both ingest paths.
func newSession(target, role string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Target:      target,
		Role:        role,
		ConnectedAt: time.Now(),
		LastSeen:    time.Now().Unix(),
		Active:      1,
	}
}
