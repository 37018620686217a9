package gateway

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gesturesync/gesturesync/internal/core/events/bus"
	"github.com/gesturesync/gesturesync/internal/core/observability/log"
)

// handleTouch upgrades a websocket session. Query params: `target` names the
// binding target (empty means the document) and `role` selects source or
// consumer behavior.
func (g *Gateway) handleTouch(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&g.running) != 1 {
		http.Error(w, ErrGatewayNotRunning.Error(), http.StatusServiceUnavailable)
		return
	}

	role := r.URL.Query().Get("role")
	if role == "" {
		role = RoleSource
	}
	if role != RoleSource && role != RoleConsumer {
		http.Error(w, ErrUnknownRole.Error(), http.StatusBadRequest)
		return
	}

	if atomic.LoadInt64(&g.sessionCount) >= int64(g.config.MaxClients) {
		g.logger.Warn("Maximum clients reached, rejecting connection",
			log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	target := r.URL.Query().Get("target")

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("Failed to upgrade connection", log.Error(err))
		return
	}

	ts := g.acquireTarget(target)
	if ts == nil {
		_ = conn.Close()
		return
	}

	session := newSession(target, role)
	session.ws = conn

	g.sessions.Store(session.ID, session)
	atomic.AddInt64(&g.sessionCount, 1)

	g.logger.Info("Session connected",
		log.String("session_id", session.ID),
		log.String("role", role),
		log.String("target", target),
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int64("total_sessions", atomic.LoadInt64(&g.sessionCount)))

	if role == RoleConsumer {
		ts.consumers.Store(session.ID, session)
		// Initial snapshot so consumers start from the current state.
		_ = session.sendJSON(newResultFrame(target, ts.detector.Result().Get(), ts.detector.Result().Version()))
	}

	go g.readLoop(session, ts)
}

// readLoop pumps one websocket session until it disconnects. Source frames
// are republished onto the session's target topic; consumer reads only keep
// the connection's control frames flowing.
func (g *Gateway) readLoop(session *Session, ts *targetState) {
	defer g.dropSession(session, ts)

	logger := g.logger.With(log.String("session_id", session.ID))
	logger.Debug("Session read loop started")

	for atomic.LoadInt32(&session.Active) == 1 {
		_ = session.ws.SetReadDeadline(time.Now().Add(g.config.ClientTimeout))

		if session.Role != RoleSource {
			if _, _, err := session.ws.ReadMessage(); err != nil {
				break
			}
			session.touch()
			continue
		}

		var frame TouchFrame
		if err := session.ws.ReadJSON(&frame); err != nil {
			if atomic.LoadInt32(&session.Active) == 1 {
				logger.Debug("Session read failed", log.Error(err))
			}
			break
		}
		session.touch()

		ev, err := frame.Event(time.Now())
		if err != nil {
			logger.Warn("Dropping frame", log.Error(err))
			continue
		}

		if err = g.bus.PublishToTopic(session.Target, bus.NewEvent(ev.Phase.EventType(), session.ID, ev)); err != nil {
			logger.Error("Failed to deliver touch event", log.Error(err))
		}
	}

	logger.Debug("Session read loop stopped")
}
