package camera

import (
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/looplab/fsm"

	"github.com/bambui-io/bambui/internal/pkg/metrics"
	fsmutil "github.com/bambui-io/bambui/internal/pkg/util/fsm"
	"github.com/bambui-io/bambui/pkg/log"
)

const (
	// DefaultPort is the camera stream port on the printer.
	DefaultPort = 6000

	readChunkSize = 4096
	readTimeout   = 5 * time.Second
	retryBackoff  = 1 * time.Second
)

// Connection states.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateStreaming    = "streaming"
)

const (
	eventConnect     = "connect"
	eventEstablished = "established"
	eventDrop        = "drop"
)

// Config identifies one printer's camera endpoint.
type Config struct {
	// Name is the printer's registry name, used for logging and metrics.
	Name string

	Host       string
	Port       int
	Username   string
	AccessCode string
}

// FrameFunc receives each complete JPEG image. It is called from the stream's
// own goroutine; the slice is owned by the callee.
type FrameFunc func(frame []byte)

// Stream reads the camera byte stream of one printer and emits complete
// frames. Run keeps reconnecting with a fixed backoff until its context is
// cancelled.
type Stream struct {
	cfg     Config
	onFrame FrameFunc
	machine *fsm.FSM
	logger  log.Logger

	// dial is swapped out in tests.
	dial func(ctx context.Context) (net.Conn, error)
}

// New creates a camera stream for the given endpoint.
func New(cfg Config, onFrame FrameFunc) *Stream {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	s := &Stream{
		cfg:     cfg,
		onFrame: onFrame,
		logger:  log.WithName("camera").WithValues("printer", cfg.Name),
	}
	s.dial = s.dialTLS

	s.machine = fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{StateDisconnected}, Dst: StateConnecting},
			{Name: eventEstablished, Src: []string{StateConnecting}, Dst: StateStreaming},
			{Name: eventDrop, Src: []string{StateConnecting, StateStreaming}, Dst: StateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": fsmutil.WrapEvent(s.onTransition),
		},
	)

	return s
}

// State returns the current connection state.
func (s *Stream) State() string {
	return s.machine.Current()
}

func (s *Stream) onTransition(ctx context.Context, e *fsm.Event) error {
	s.logger.Debug("Camera state changed", "from", e.Src, "to", e.Dst)
	return nil
}

// Run drives the connect/stream/reconnect loop until ctx is cancelled.
// Cancellation aborts an in-flight read immediately.
func (s *Stream) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		_ = s.machine.Event(ctx, eventConnect)

		conn, err := s.dial(ctx)
		if err != nil {
			_ = s.machine.Event(ctx, eventDrop)
			if ctx.Err() != nil {
				return
			}
			s.logger.Error(err, "Camera connect failed")
			metrics.CameraReconnectsTotal.WithLabelValues(s.cfg.Name).Inc()
			if !sleep(ctx, retryBackoff) {
				return
			}
			continue
		}

		_ = s.machine.Event(ctx, eventEstablished)
		s.logger.Info("Camera stream connected", "host", s.cfg.Host)

		s.serve(ctx, conn)

		_ = s.machine.Event(ctx, eventDrop)
		if ctx.Err() != nil {
			return
		}

		metrics.CameraReconnectsTotal.WithLabelValues(s.cfg.Name).Inc()
		if !sleep(ctx, retryBackoff) {
			return
		}
	}
}

// serve authenticates and reads the stream until an error, a timeout, the
// peer closing, or cancellation.
func (s *Stream) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Closing the connection is what actually interrupts a blocked Read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if _, err := conn.Write(authPacket(s.cfg.Username, s.cfg.AccessCode)); err != nil {
		s.logger.Error(err, "Camera auth handshake failed")
		return
	}

	buf := make([]byte, 0, 4*readChunkSize)
	chunk := make([]byte, readChunkSize)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		n, err := conn.Read(chunk)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("Camera stream read ended", "error", err)
			}
			return
		}
		if n == 0 {
			return
		}

		buf = append(buf, chunk[:n]...)

		// One frame per read cycle; any further complete frame stays
		// buffered for the next pass.
		if frame, rest := extractFrame(buf); frame != nil {
			metrics.CameraFramesTotal.WithLabelValues(s.cfg.Name).Inc()
			s.onFrame(bytes.Clone(frame))
			buf = rest
		}
	}
}

func (s *Stream) dialTLS(ctx context.Context) (net.Conn, error) {
	dialer := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: readTimeout},
		// Printers present self-signed certificates.
		Config: &tls.Config{InsecureSkipVerify: true},
	}
	return dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
}

// sleep waits d or until ctx is cancelled; it reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
