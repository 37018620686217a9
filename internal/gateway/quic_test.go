package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
)

func writeFrame(t *testing.T, buf *bytes.Buffer, payload []byte) {
	t.Helper()
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)
}

func TestReadFrame(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(t, &buf, []byte(`{"phase":"start","x":1,"y":2}`))
	writeFrame(t, &buf, []byte(`{"phase":"end","x":3,"y":4}`))

	first, err := readFrame(&buf, 1024)
	require.NoError(t, err)
	require.JSONEq(t, `{"phase":"start","x":1,"y":2}`, string(first))

	second, err := readFrame(&buf, 1024)
	require.NoError(t, err)
	require.JSONEq(t, `{"phase":"end","x":3,"y":4}`, string(second))

	_, err = readFrame(&buf, 1024)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(t, &buf, bytes.Repeat([]byte("x"), 64))

	_, err := readFrame(&buf, 16)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 100)
	buf.Write(lenBuf[:])
	buf.WriteString("short")

	_, err := readFrame(&buf, 1024)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func writeQUICFrame(t *testing.T, w io.Writer, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	_, err = w.Write(lenBuf[:])
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
}

func TestQUICSwipeIngest(t *testing.T) {
	g, srv := startTestGateway(t, func(c *Config) { c.QUICListenAddr = "127.0.0.1:0" })

	consumer := dialWS(t, srv, "pad-q", RoleConsumer)
	readResult(t, consumer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := quic.DialAddr(ctx, g.quicListener.Addr().String(), &tls.Config{
		InsecureSkipVerify: true, // the listener runs on a self-signed cert
		NextProtos:         []string{quicALPN},
	}, nil)
	require.NoError(t, err)

	stream, err := conn.OpenStreamSync(ctx)
	require.NoError(t, err)

	writeQUICFrame(t, stream, HelloFrame{Target: "pad-q"})
	for _, frame := range []TouchFrame{
		{Phase: "start", X: 500, Y: 500},
		{Phase: "move", X: 300, Y: 500},
		{Phase: "end", X: 300, Y: 500},
	} {
		writeQUICFrame(t, stream, frame)
	}

	update := readResult(t, consumer)
	require.Equal(t, "pad-q", update.Target)
	require.True(t, update.Left)
	require.False(t, update.Right || update.Up || update.Down)

	require.Eventually(t, func() bool {
		return g.GetStats().Sessions == 2
	}, time.Second, 10*time.Millisecond, "websocket consumer plus QUIC source")

	// Closing the connection ends the session's read loop.
	require.NoError(t, conn.CloseWithError(0, "done"))
	require.Eventually(t, func() bool {
		return g.GetStats().Sessions == 1
	}, time.Second, 10*time.Millisecond)
}

func TestGenerateTLSConfig(t *testing.T) {
	cfg, err := generateTLSConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	require.Contains(t, cfg.NextProtos, quicALPN)
	require.EqualValues(t, tls.VersionTLS13, cfg.MinVersion)
}
