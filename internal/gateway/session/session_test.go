package session

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bambui-io/bambui/internal/gateway/command"
	"github.com/bambui-io/bambui/pkg/options"
)

func testIdentity() Identity {
	return Identity{
		Name:       "workshop",
		IP:         "192.168.1.50",
		AccessCode: "12345678",
		Serial:     "01S00C123456789",
		Model:      "P1S",
	}
}

// fakeTransports replaces both transports with counters. The fake status
// loop mimics the real one's exit rule: it polls the subscriber count and
// returns when it reaches zero.
type fakeTransports struct {
	cameraStarts atomic.Int32
	cameraStops  atomic.Int32
	statusStarts atomic.Int32
	statusStops  atomic.Int32
}

func newTestSession(t *testing.T) (*Session, *fakeTransports) {
	t.Helper()

	s := New(testIdentity(), options.NewMqttOptions(), options.NewFtpOptions())
	ft := &fakeTransports{}

	s.startCamera = func(ctx context.Context, _ func([]byte)) {
		ft.cameraStarts.Add(1)
		go func() {
			<-ctx.Done()
			ft.cameraStops.Add(1)
		}()
	}
	s.runStatus = func(ctx context.Context) error {
		ft.statusStarts.Add(1)
		defer ft.statusStops.Add(1)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Millisecond):
				if s.SubscriberCount() == 0 {
					return nil
				}
			}
		}
	}
	return s, ft
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubscribeStartsTransportsOnce(t *testing.T) {
	s, ft := newTestSession(t)

	const n = 8
	var wg sync.WaitGroup
	handles := make([]Handle, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = s.Subscribe(strconv.Itoa(i), func(Event) {})
		}(i)
	}
	wg.Wait()

	if got := s.SubscriberCount(); got != n {
		t.Fatalf("SubscriberCount = %d, want %d", got, n)
	}
	if got := ft.cameraStarts.Load(); got != 1 {
		t.Errorf("camera started %d times, want 1", got)
	}
	if got := ft.statusStarts.Load(); got != 1 {
		t.Errorf("status loop started %d times, want 1", got)
	}

	// All but the last unsubscribe must not stop anything.
	for i := 0; i < n-1; i++ {
		s.Unsubscribe(handles[i])
	}
	if got := ft.cameraStops.Load(); got != 0 {
		t.Fatalf("camera stopped with %d subscribers left", s.SubscriberCount())
	}

	s.Unsubscribe(handles[n-1])
	waitFor(t, "camera stop", func() bool { return ft.cameraStops.Load() == 1 })
	waitFor(t, "status loop stop", func() bool { return ft.statusStops.Load() == 1 })

	// A fresh subscriber brings everything back.
	h := s.Subscribe("again", func(Event) {})
	defer s.Unsubscribe(h)
	waitFor(t, "camera restart", func() bool { return ft.cameraStarts.Load() == 2 })
	waitFor(t, "status loop restart", func() bool { return ft.statusStarts.Load() == 2 })
}

func TestUnsubscribeUnknownHandle(t *testing.T) {
	s, ft := newTestSession(t)

	h := s.Subscribe("a", func(Event) {})
	s.Unsubscribe(Handle{id: "nobody"})
	if got := s.SubscriberCount(); got != 1 {
		t.Errorf("SubscriberCount = %d, want 1", got)
	}
	s.Unsubscribe(h)
	s.Unsubscribe(h) // double unsubscribe is a no-op
	waitFor(t, "camera stop", func() bool { return ft.cameraStops.Load() == 1 })
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	s, _ := newTestSession(t)

	var mu sync.Mutex
	got := map[string]Event{}
	for _, id := range []string{"a", "b", "c"} {
		id := id
		h := s.Subscribe(id, func(ev Event) {
			mu.Lock()
			got[id] = ev
			mu.Unlock()
		})
		defer s.Unsubscribe(h)
	}

	s.Notify("hello")

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("delivered to %d subscribers, want 3", len(got))
	}
	for id, ev := range got {
		if ev.Type != EventMessage || ev.Message != "hello" {
			t.Errorf("subscriber %s got %+v", id, ev)
		}
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, _ int, _ bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func TestDispatchPublishesOnRequestTopic(t *testing.T) {
	s, _ := newTestSession(t)
	pub := &fakePublisher{}
	s.setClient(pub)

	s.Dispatch(context.Background(), command.StopPrint{})

	if pub.count() != 1 {
		t.Fatalf("published %d messages, want 1", pub.count())
	}
	want := "device/" + testIdentity().Serial + "/request"
	if pub.topics[0] != want {
		t.Errorf("topic = %q, want %q", pub.topics[0], want)
	}
}

func TestDispatchIdleGate(t *testing.T) {
	s, _ := newTestSession(t)
	pub := &fakePublisher{}
	s.setClient(pub)

	var events []Event
	h := s.Subscribe("watcher", func(ev Event) { events = append(events, ev) })
	defer s.Unsubscribe(h)

	// No print_type known yet: not idle.
	s.Dispatch(context.Background(), command.MoveHome{})
	if pub.count() != 0 {
		t.Fatal("idle-gated command published while state unknown")
	}
	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("expected one error event, got %+v", events)
	}

	s.mu.Lock()
	s.snapshot.Merge(map[string]any{"print_type": "local"})
	s.mu.Unlock()
	s.Dispatch(context.Background(), command.MoveHome{})
	if pub.count() != 0 {
		t.Fatal("idle-gated command published while printing")
	}

	s.mu.Lock()
	s.snapshot.Merge(map[string]any{"print_type": "idle"})
	s.mu.Unlock()
	s.Dispatch(context.Background(), command.MoveHome{})
	if pub.count() != 1 {
		t.Fatal("idle-gated command not published while idle")
	}

	// Commands without the gate go through regardless of state.
	s.mu.Lock()
	s.snapshot.Merge(map[string]any{"print_type": "local"})
	s.mu.Unlock()
	s.Dispatch(context.Background(), command.StopPrint{})
	if pub.count() != 2 {
		t.Fatal("ungated command blocked while printing")
	}
}

func TestDispatchWithoutConnection(t *testing.T) {
	s, _ := newTestSession(t)

	var events []Event
	h := s.Subscribe("watcher", func(ev Event) { events = append(events, ev) })
	defer s.Unsubscribe(h)

	s.Dispatch(context.Background(), command.StopPrint{})

	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("expected one error event, got %+v", events)
	}
}

func TestHandleReportLatchAndReprime(t *testing.T) {
	s, _ := newTestSession(t)
	pub := &fakePublisher{}
	s.setClient(pub)

	var mu sync.Mutex
	var statuses []Event
	h := s.Subscribe("watcher", func(ev Event) {
		if ev.Type == EventPrinterStatus {
			mu.Lock()
			statuses = append(statuses, ev)
			mu.Unlock()
		}
	})
	defer s.Unsubscribe(h)

	// Incremental fragment before any full report: merged, not emitted,
	// but a new full report is requested.
	s.handleReport(context.Background(), "", []byte(`{"print":{"msg":1,"nozzle_temper":210}}`))
	mu.Lock()
	if len(statuses) != 0 {
		t.Fatalf("status emitted before baseline: %+v", statuses)
	}
	mu.Unlock()
	if pub.count() != 1 {
		t.Fatalf("published %d pushall requests, want 1", pub.count())
	}

	// Full report primes the latch and emits the merged state.
	s.handleReport(context.Background(), "", []byte(`{"print":{"msg":0,"print_type":"idle"}}`))
	mu.Lock()
	if len(statuses) != 1 {
		t.Fatalf("emitted %d status events, want 1", len(statuses))
	}
	if statuses[0].Status["nozzle_temper"] != 210.0 {
		t.Errorf("merged state lost earlier fragment: %+v", statuses[0].Status)
	}
	mu.Unlock()

	// Subsequent incremental fragments are emitted too.
	s.handleReport(context.Background(), "", []byte(`{"print":{"msg":1,"bed_temper":60}}`))
	mu.Lock()
	if len(statuses) != 2 {
		t.Fatalf("emitted %d status events, want 2", len(statuses))
	}
	mu.Unlock()
	if pub.count() != 3 {
		t.Errorf("published %d pushall requests, want one per report", pub.count())
	}

	// Reports without a print object are ignored.
	s.handleReport(context.Background(), "", []byte(`{"system":{}}`))
	s.handleReport(context.Background(), "", []byte(`not json`))
	mu.Lock()
	if len(statuses) != 2 {
		t.Errorf("malformed reports changed the stream: %d events", len(statuses))
	}
	mu.Unlock()
}

func TestBrokerReconnectResetsLatch(t *testing.T) {
	s, _ := newTestSession(t)
	pub := &fakePublisher{}
	s.setClient(pub)

	s.handleReport(context.Background(), "", []byte(`{"print":{"msg":0,"print_type":"idle"}}`))

	s.mu.Lock()
	s.snapshot.Reset()
	primed := s.snapshot.Primed()
	s.mu.Unlock()
	if primed {
		t.Fatal("latch survived reconnect")
	}

	var statuses int
	h := s.Subscribe("watcher", func(ev Event) {
		if ev.Type == EventPrinterStatus {
			statuses++
		}
	})
	defer s.Unsubscribe(h)

	// Incremental data after the reset must stay silent again.
	s.handleReport(context.Background(), "", []byte(`{"print":{"msg":1,"bed_temper":61}}`))
	if statuses != 0 {
		t.Error("status emitted from stale baseline after reconnect")
	}
}

func TestRefreshRestartsTransports(t *testing.T) {
	s, ft := newTestSession(t)

	h := s.Subscribe("a", func(Event) {})
	defer s.Unsubscribe(h)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "camera restart", func() bool { return ft.cameraStarts.Load() == 2 })
	waitFor(t, "old camera stop", func() bool { return ft.cameraStops.Load() == 1 })
	waitFor(t, "status restart", func() bool { return ft.statusStarts.Load() == 2 })
}

func TestKeepAliveRetainsCamera(t *testing.T) {
	s, ft := newTestSession(t)
	s.SetKeepAlive(true)

	h := s.Subscribe("a", func(Event) {})
	s.Unsubscribe(h)

	time.Sleep(20 * time.Millisecond)
	if ft.cameraStops.Load() != 0 {
		t.Fatal("camera stopped despite keep-alive")
	}
	// The status loop still follows the subscriber count.
	waitFor(t, "status loop stop", func() bool { return ft.statusStops.Load() == 1 })

	s.SetKeepAlive(false)
	waitFor(t, "camera stop", func() bool { return ft.cameraStops.Load() == 1 })
}

func TestRefreshWithoutSubscribersStaysDown(t *testing.T) {
	s, ft := newTestSession(t)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if ft.cameraStarts.Load() != 0 || ft.statusStarts.Load() != 0 {
		t.Error("refresh started transports without subscribers")
	}
}
