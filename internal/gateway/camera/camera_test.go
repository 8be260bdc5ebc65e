package camera

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"
)

// startFakeCamera returns a stream dialing into an in-memory connection and
// the server half of that connection.
func startFakeCamera(t *testing.T, onFrame FrameFunc) (*Stream, net.Conn) {
	t.Helper()

	client, server := net.Pipe()
	s := New(Config{
		Name:       "test",
		Host:       "127.0.0.1",
		Username:   "bblp",
		AccessCode: "code1234",
	}, onFrame)
	s.dial = func(context.Context) (net.Conn, error) {
		return client, nil
	}
	return s, server
}

func TestStreamHandshakeAndFrames(t *testing.T) {
	frames := make(chan []byte, 4)
	s, server := startFakeCamera(t, func(frame []byte) {
		frames <- frame
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// The stream must introduce itself with the 80-byte auth packet.
	auth := make([]byte, 80)
	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := readFull(server, auth); err != nil {
		t.Fatalf("read auth packet: %v", err)
	}
	if !bytes.Equal(auth, authPacket("bblp", "code1234")) {
		t.Errorf("auth packet mismatch: %x", auth)
	}

	// One frame split across two writes.
	frame := jpeg(1, 2, 3, 4)
	server.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := server.Write(frame[:3]); err != nil {
		t.Fatal(err)
	}
	if _, err := server.Write(frame[3:]); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-frames:
		if !bytes.Equal(got, frame) {
			t.Errorf("frame = %x, want %x", got, frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestStreamStopsOnCancel(t *testing.T) {
	s, server := startFakeCamera(t, func([]byte) {})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	// Drain the handshake so the stream reaches its read loop.
	auth := make([]byte, 80)
	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := readFull(server, auth); err != nil {
		t.Fatalf("read auth packet: %v", err)
	}

	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
	if got := s.State(); got != StateDisconnected {
		t.Errorf("state = %q, want %q", got, StateDisconnected)
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
