package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bambui-io/bambui/internal/gateway/camera"
	"github.com/bambui-io/bambui/internal/gateway/command"
	"github.com/bambui-io/bambui/internal/gateway/ftp"
	"github.com/bambui-io/bambui/internal/pkg/metrics"
	"github.com/bambui-io/bambui/pkg/log"
	"github.com/bambui-io/bambui/pkg/options"
)

var _ command.Host = (*Session)(nil)

// Handle identifies one subscription for later removal.
type Handle struct {
	id string
}

// task tracks one running transport goroutine. Comparing pointers lets a
// goroutine's cleanup detect that it has already been superseded by a
// replacement (ForceRefresh tears transports down and starts new ones
// without waiting for the old goroutines to finish).
type task struct {
	cancel context.CancelFunc
}

// Session owns everything the gateway knows about one printer: the
// subscriber set, the accumulated status snapshot, and the camera and
// status transports. Transports run only while at least one subscriber is
// attached.
type Session struct {
	identity Identity
	mqttOpts *options.MqttOptions
	ftpOpts  *options.FtpOptions
	logger   log.Logger

	mu         sync.Mutex
	subs       map[string]Sink
	snapshot   *snapshot
	client     Publisher
	cameraTask *task
	statusTask *task
	keepAlive  bool

	// Seams for tests; production wiring is set in New.
	startCamera func(ctx context.Context, onFrame func([]byte))
	runStatus   func(ctx context.Context) error
}

// Publisher is the slice of the MQTT client the dispatch path needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error
}

// New builds a session for one printer. Transports stay down until the
// first subscriber arrives.
func New(identity Identity, mqttOpts *options.MqttOptions, ftpOpts *options.FtpOptions) *Session {
	s := &Session{
		identity:  identity,
		mqttOpts:  mqttOpts,
		ftpOpts:   ftpOpts,
		logger:    log.WithName("session").WithValues("printer", identity.Name),
		subs:      make(map[string]Sink),
		snapshot:  newSnapshot(),
		keepAlive: identity.KeepAlive,
	}

	s.startCamera = func(ctx context.Context, onFrame func([]byte)) {
		stream := camera.New(camera.Config{
			Name:       identity.Name,
			Host:       identity.IP,
			Username:   mqttOpts.Username,
			AccessCode: identity.AccessCode,
		}, onFrame)
		go stream.Run(ctx)
	}
	s.runStatus = s.runStatusLoop

	return s
}

// Identity returns the printer this session serves.
func (s *Session) Identity() Identity {
	return s.identity
}

// Subscribe attaches a sink to the session's event stream. The first
// subscriber starts the camera and status transports.
func (s *Session) Subscribe(id string, sink Sink) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[id] = sink
	metrics.ActiveSubscribers.WithLabelValues(s.identity.Name).Set(float64(len(s.subs)))
	s.logger.Info("Subscriber attached", "subscriber", id, "total", len(s.subs))

	if len(s.subs) == 1 {
		s.startTransportsLocked()
	}
	return Handle{id: id}
}

// Unsubscribe detaches a sink. The last subscriber cancels the camera
// immediately; the status loop notices the empty set on its next tick and
// exits on its own.
func (s *Session) Unsubscribe(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[h.id]; !ok {
		return
	}
	delete(s.subs, h.id)
	metrics.ActiveSubscribers.WithLabelValues(s.identity.Name).Set(float64(len(s.subs)))
	s.logger.Info("Subscriber detached", "subscriber", h.id, "total", len(s.subs))

	if len(s.subs) == 0 && !s.keepAlive {
		s.stopCameraLocked()
	}
}

// SubscriberCount returns the current number of attached sinks.
func (s *Session) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// SetKeepAlive pins the camera transport up even without subscribers. The
// status loop still follows the subscriber count.
func (s *Session) SetKeepAlive(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepAlive = on
	if !on && len(s.subs) == 0 {
		s.stopCameraLocked()
	}
}

func (s *Session) startTransportsLocked() {
	s.startCameraLocked()
	s.startStatusLocked()
}

func (s *Session) startCameraLocked() {
	if s.cameraTask != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cameraTask = &task{cancel: cancel}
	s.startCamera(ctx, s.emitFrame)
}

func (s *Session) stopCameraLocked() {
	if s.cameraTask == nil {
		return
	}
	s.cameraTask.cancel()
	s.cameraTask = nil
}

func (s *Session) startStatusLocked() {
	if s.statusTask != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel}
	s.statusTask = t
	go s.supervise(ctx, t)
}

func (s *Session) stopStatusLocked() {
	if s.statusTask == nil {
		return
	}
	s.statusTask.cancel()
	s.statusTask = nil
}

func (s *Session) emitFrame(frame []byte) {
	s.broadcast(imageEvent(frame))
}

// broadcast delivers an event to every current subscriber. Sinks are
// called outside the mutex; a sink must not block.
func (s *Session) broadcast(ev Event) {
	s.mu.Lock()
	sinks := make([]Sink, 0, len(s.subs))
	for _, sink := range s.subs {
		sinks = append(sinks, sink)
	}
	s.mu.Unlock()

	for _, sink := range sinks {
		sink(ev)
	}
}

func (s *Session) requestTopic() string {
	return fmt.Sprintf("device/%s/request", s.identity.Serial)
}

func (s *Session) reportTopic() string {
	return fmt.Sprintf("device/%s/report", s.identity.Serial)
}

// Dispatch runs one decoded command against the printer: idle gate, pre
// hook, payload publish, post hook. Failures surface to subscribers as
// error events rather than as returned errors, because the caller is a
// websocket read loop with nobody to hand an error to.
func (s *Session) Dispatch(ctx context.Context, cmd command.Command) {
	if cmd.CheckIdle() {
		s.mu.Lock()
		idle := s.snapshot.Idle()
		s.mu.Unlock()
		if !idle {
			s.logger.Info("Rejected command, printer busy", "type", cmd.Type())
			metrics.CommandsTotal.WithLabelValues(s.identity.Name, cmd.Type(), "rejected").Inc()
			s.broadcast(errorEvent(fmt.Sprintf("Printer is not idle, refusing %s", cmd.Type())))
			return
		}
	}

	if pre, ok := cmd.(command.PreDispatcher); ok {
		if err := pre.PreDispatch(ctx, s); err != nil {
			s.logger.Error(err, "Command preparation failed", "type", cmd.Type())
			metrics.CommandsTotal.WithLabelValues(s.identity.Name, cmd.Type(), "failed").Inc()
			s.broadcast(errorEvent(err.Error()))
			return
		}
	}

	if payload := cmd.Payload(); payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Error(err, "Failed to encode command", "type", cmd.Type())
			metrics.CommandsTotal.WithLabelValues(s.identity.Name, cmd.Type(), "failed").Inc()
			s.broadcast(errorEvent(fmt.Sprintf("Failed to encode %s", cmd.Type())))
			return
		}
		if err := s.publish(ctx, data); err != nil {
			s.logger.Error(err, "Failed to publish command", "type", cmd.Type())
			metrics.CommandsTotal.WithLabelValues(s.identity.Name, cmd.Type(), "failed").Inc()
			s.broadcast(errorEvent(fmt.Sprintf("Failed to send %s: %v", cmd.Type(), err)))
			return
		}
	}

	if post, ok := cmd.(command.PostDispatcher); ok {
		if err := post.PostDispatch(ctx, s); err != nil {
			s.logger.Error(err, "Command follow-up failed", "type", cmd.Type())
			s.broadcast(errorEvent(err.Error()))
		}
	}

	metrics.CommandsTotal.WithLabelValues(s.identity.Name, cmd.Type(), "published").Inc()
}

func (s *Session) publish(ctx context.Context, data []byte) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return fmt.Errorf("printer %s is not connected", s.identity.Name)
	}
	return client.Publish(ctx, s.requestTopic(), 0, false, data)
}

func (s *Session) setClient(client Publisher) {
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
}

// Notify broadcasts an informational message to all subscribers.
func (s *Session) Notify(text string) {
	s.broadcast(messageEvent(text))
}

// Refresh tears both transports down and, if subscribers remain, starts
// fresh ones. Used when the printer's state machine has wedged and the
// only fix is a clean reconnect.
func (s *Session) Refresh(ctx context.Context) error {
	s.logger.Info("Forcing transport refresh")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCameraLocked()
	s.stopStatusLocked()
	if len(s.subs) > 0 {
		s.startTransportsLocked()
	}
	return nil
}

// UploadFile stores a file on the printer over FTPS.
func (s *Session) UploadFile(ctx context.Context, name string, data []byte) error {
	client, err := ftp.Dial(ctx, s.identity.IP, s.identity.AccessCode, s.ftpOpts)
	if err != nil {
		return err
	}
	defer client.Quit() //nolint:errcheck

	if err := client.Upload(name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload %q to printer %s: %w", name, s.identity.Name, err)
	}
	s.logger.Info("File uploaded", "file", name, "bytes", len(data))
	return nil
}

// ListFiles returns the contents of the printer's storage root.
func (s *Session) ListFiles(ctx context.Context) ([]ftp.Entry, error) {
	client, err := ftp.Dial(ctx, s.identity.IP, s.identity.AccessCode, s.ftpOpts)
	if err != nil {
		return nil, err
	}
	defer client.Quit() //nolint:errcheck

	return client.List("/")
}

// DeleteFile removes a file from the printer's storage.
func (s *Session) DeleteFile(ctx context.Context, name string) error {
	client, err := ftp.Dial(ctx, s.identity.IP, s.identity.AccessCode, s.ftpOpts)
	if err != nil {
		return err
	}
	defer client.Quit() //nolint:errcheck

	if err := client.Delete(name); err != nil {
		return fmt.Errorf("delete %q on printer %s: %w", name, s.identity.Name, err)
	}
	return nil
}
