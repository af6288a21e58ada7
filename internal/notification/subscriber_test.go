package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"callqa_backend/internal/events"
	"callqa_backend/platform/logger"
)

type fakeSender struct {
	alerts []EscalationAlert
	fail   bool
}

func (s *fakeSender) SendEscalationAlert(ctx context.Context, alert EscalationAlert) error {
	if s.fail {
		return errors.New("smtp unreachable")
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func TestSubscriberSendsAlert(t *testing.T) {
	sender := &fakeSender{}
	sub := NewSubscriber(sender, nil, logger.New("development"))

	callID := uuid.New()
	event := events.NewEscalationFlagged(callID, nil, nil, "customer threatened legal action", time.Now(), 0.35)

	if err := sub.handle(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(sender.alerts))
	}
	alert := sender.alerts[0]
	if alert.CallID != callID.String() {
		t.Fatalf("call id = %s", alert.CallID)
	}
	if alert.AgentName != "Unassigned" || alert.CityName != "Unknown" {
		t.Fatalf("defaults not applied: %q %q", alert.AgentName, alert.CityName)
	}
	if alert.WhyFlagged != "customer threatened legal action" {
		t.Fatalf("why = %q", alert.WhyFlagged)
	}
}

func TestSubscriberSurfacesSendFailure(t *testing.T) {
	sender := &fakeSender{fail: true}
	sub := NewSubscriber(sender, nil, logger.New("development"))

	event := events.NewEscalationFlagged(uuid.New(), nil, nil, "repeat emergency", time.Now(), 0.2)
	if err := sub.handle(context.Background(), event); err == nil {
		t.Fatal("expected delivery error")
	}
}

func TestSubscriberRejectsWrongEventType(t *testing.T) {
	sub := NewSubscriber(&fakeSender{}, nil, logger.New("development"))

	event := events.NewCallIngested(uuid.New(), nil, nil)
	if err := sub.handle(context.Background(), event); err == nil {
		t.Fatal("expected type error")
	}
}
