package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bambui-io/bambui/internal/gateway/command"
	"github.com/bambui-io/bambui/internal/pkg/metrics"
	"github.com/bambui-io/bambui/pkg/mqtt"
)

// runStatusLoop owns one MQTT connection to the printer and keeps it up
// until the subscriber set empties or the context is cancelled. A nil
// return means a deliberate exit; an error puts the supervisor in charge
// of re-creating the loop.
func (s *Session) runStatusLoop(ctx context.Context) error {
	client, err := mqtt.NewClient(&mqtt.ClientConfig{
		BrokerURL:          fmt.Sprintf("tls://%s:%d", s.identity.IP, s.mqttOpts.Port),
		ClientID:           fmt.Sprintf("bambui-%s", s.identity.Serial),
		Username:           s.mqttOpts.Username,
		Password:           s.identity.AccessCode,
		KeepAlive:          uint16(s.mqttOpts.KeepAlive.Seconds()),
		ConnectTimeout:     s.mqttOpts.ConnectTimeout,
		InsecureSkipVerify: s.mqttOpts.InsecureSkipVerify,
		OnConnect:          s.onBrokerConnect,
	})
	if err != nil {
		return fmt.Errorf("create mqtt client: %w", err)
	}

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("start mqtt client: %w", err)
	}
	defer func() {
		s.setClient(nil)
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(dctx)
	}()

	if err := client.AwaitConnection(ctx); err != nil {
		return nil // context cancelled while waiting
	}
	s.setClient(client)

	if err := client.Subscribe(ctx, s.reportTopic(), 0, s.handleReport); err != nil {
		return fmt.Errorf("subscribe to reports: %w", err)
	}
	s.logger.Info("Status loop connected", "topic", s.reportTopic())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.SubscriberCount() == 0 {
				s.logger.Info("No subscribers left, stopping status loop")
				return nil
			}
		}
	}
}

// onBrokerConnect runs on every (re)connection. The previous baseline is
// stale at this point: drop the latch and ask the firmware for a full
// report before showing state to subscribers again.
func (s *Session) onBrokerConnect(ctx context.Context, c mqtt.Client) {
	s.mu.Lock()
	s.snapshot.Reset()
	s.mu.Unlock()

	s.logger.Info("Broker connected, requesting full status")
	s.requestFullStatus(ctx, c)
}

func (s *Session) requestFullStatus(ctx context.Context, p Publisher) {
	data, err := json.Marshal(command.PushAll())
	if err != nil {
		s.logger.Error(err, "Failed to encode pushall request")
		return
	}
	if err := p.Publish(ctx, s.requestTopic(), 0, false, data); err != nil {
		s.logger.Warn("Failed to request full status", "err", err)
	}
}

// handleReport merges one telemetry fragment. Runs inline on the MQTT
// reader goroutine so fragments are applied in arrival order.
func (s *Session) handleReport(ctx context.Context, _ string, payload []byte) {
	var fragment map[string]any
	if err := json.Unmarshal(payload, &fragment); err != nil {
		s.logger.Warn("Skipping unparseable report", "err", err)
		return
	}
	report, ok := fragment["print"].(map[string]any)
	if !ok {
		s.logger.Debug("Skipping report without print object")
		return
	}

	s.mu.Lock()
	s.snapshot.Merge(report)
	primed := s.snapshot.Primed()
	var fields map[string]any
	if primed {
		fields = s.snapshot.Fields()
	}
	client := s.client
	s.mu.Unlock()

	metrics.StatusFragmentsTotal.WithLabelValues(s.identity.Name).Inc()

	if primed {
		s.broadcast(statusEvent(fields))
	}

	// The firmware only answers with full reports on request; incremental
	// pushes in between would leave new subscribers without a baseline.
	// Asking again after every report keeps the cadence the device expects.
	if client != nil {
		s.requestFullStatus(ctx, client)
	}
}
