package gateway

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"encoding/json"
	"io"
	"math/big"
	"net"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/gesturesync/gesturesync/internal/core/events/bus"
	"github.com/gesturesync/gesturesync/internal/core/observability/log"
)

const quicALPN = "gesturesync-touch"

// startQUIC brings up the QUIC ingest listener. QUIC sources are write-only:
// one bidirectional stream per connection, a hello frame naming the target,
// then length-prefixed JSON touch frames.
func (g *Gateway) startQUIC(_ context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", g.config.QUICListenAddr)
	if err != nil {
		return err
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}

	tlsConfig, err := generateTLSConfig()
	if err != nil {
		_ = udpConn.Close()
		return err
	}

	listener, err := quic.Listen(udpConn, tlsConfig, &quic.Config{})
	if err != nil {
		_ = udpConn.Close()
		return err
	}
	g.quicListener = listener

	g.logger.Info("QUIC listener started",
		log.String("addr", listener.Addr().String()))

	g.workerGroup.Add(1)
	go func() {
		defer g.workerGroup.Done()
		g.acceptQUIC()
	}()

	return nil
}

// acceptQUIC accepts incoming QUIC connections until the listener closes.
func (g *Gateway) acceptQUIC() {
	g.logger.Debug("QUIC acceptor started")
	defer g.logger.Debug("QUIC acceptor stopped")

	for atomic.LoadInt32(&g.running) == 1 {
		conn, err := g.quicListener.Accept(context.Background())
		if err != nil {
			if atomic.LoadInt32(&g.running) == 0 {
				return
			}
			g.logger.Error("Failed to accept QUIC connection", log.Error(err))
			time.Sleep(100 * time.Millisecond)
			continue
		}

		g.logger.Info("QUIC connection accepted",
			log.String("remote_addr", conn.RemoteAddr().String()))

		go g.handleQUICConn(conn)
	}
}

// handleQUICConn runs one QUIC source session.
func (g *Gateway) handleQUICConn(conn *quic.Conn) {
	logger := g.logger.With(log.String("remote_addr", conn.RemoteAddr().String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	stream, err := conn.AcceptStream(ctx)
	cancel()
	if err != nil {
		logger.Error("Failed to accept QUIC stream", log.Error(err))
		_ = conn.CloseWithError(0, "no stream")
		return
	}

	payload, err := readFrame(stream, g.config.MaxFrameSize)
	if err != nil {
		logger.Error("Failed to read hello frame", log.Error(err))
		_ = conn.CloseWithError(0, "bad hello")
		return
	}
	var hello HelloFrame
	if err = json.Unmarshal(payload, &hello); err != nil {
		logger.Error("Failed to parse hello frame", log.Error(err))
		_ = conn.CloseWithError(0, "bad hello")
		return
	}

	if atomic.LoadInt64(&g.sessionCount) >= int64(g.config.MaxClients) {
		logger.Warn("Maximum clients reached, rejecting QUIC connection")
		_ = conn.CloseWithError(0, ErrMaxClientsReached.Error())
		return
	}

	ts := g.acquireTarget(hello.Target)
	if ts == nil {
		_ = conn.CloseWithError(0, "no detector")
		return
	}

	session := newSession(hello.Target, RoleSource)
	session.quic = conn

	g.sessions.Store(session.ID, session)
	atomic.AddInt64(&g.sessionCount, 1)

	logger = logger.With(log.String("session_id", session.ID))
	logger.Info("QUIC session connected",
		log.String("target", hello.Target),
		log.Int64("total_sessions", atomic.LoadInt64(&g.sessionCount)))

	defer g.dropSession(session, ts)

	for atomic.LoadInt32(&session.Active) == 1 {
		payload, err = readFrame(stream, g.config.MaxFrameSize)
		if err != nil {
			if err != io.EOF && atomic.LoadInt32(&session.Active) == 1 {
				logger.Debug("QUIC stream read failed", log.Error(err))
			}
			break
		}
		session.touch()

		var frame TouchFrame
		if err = json.Unmarshal(payload, &frame); err != nil {
			logger.Warn("Dropping frame", log.Error(err))
			continue
		}
		ev, err := frame.Event(time.Now())
		if err != nil {
			logger.Warn("Dropping frame", log.Error(err))
			continue
		}

		if err = g.bus.PublishToTopic(session.Target, bus.NewEvent(ev.Phase.EventType(), session.ID, ev)); err != nil {
			logger.Error("Failed to deliver touch event", log.Error(err))
		}
	}
}

// readFrame reads one 4-byte big-endian length-prefixed frame.
func readFrame(r io.Reader, maxSize int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if int(n) > maxSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// generateTLSConfig builds a self-signed TLS configuration for QUIC. QUIC
// requires TLS 1.3.
func generateTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "gesturesync"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  key,
		}},
		NextProtos: []string{quicALPN},
		MinVersion: tls.VersionTLS13,
	}, nil
}
