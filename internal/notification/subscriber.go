package notification

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"callqa_backend/internal/events"
	"callqa_backend/platform/logger"
)

// Subscriber listens for escalation events and fans them out as alerts.
// Delivery is best effort: a failed send is logged, never retried here,
// because the escalation remains queryable through the monitor.
type Subscriber struct {
	sender Sender
	pool   *pgxpool.Pool
	log    *logger.Logger
}

func NewSubscriber(sender Sender, pool *pgxpool.Pool, log *logger.Logger) *Subscriber {
	return &Subscriber{sender: sender, pool: pool, log: log}
}

// Register attaches the subscriber to the bus.
func (s *Subscriber) Register(bus events.Bus) {
	bus.Subscribe(events.EscalationFlagged{}.EventName(), events.HandlerFunc(s.handle))
}

func (s *Subscriber) handle(ctx context.Context, event events.Event) error {
	flagged, ok := event.(events.EscalationFlagged)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	alert := EscalationAlert{
		CallID:         flagged.CallID.String(),
		AgentName:      "Unassigned",
		CityName:       "Unknown",
		WhyFlagged:     flagged.WhyFlagged,
		OverallQuality: flagged.OverallQuality,
		CallTimestamp:  flagged.CallTimestamp,
	}

	if flagged.AgentID != nil {
		var name string
		err := s.pool.QueryRow(ctx, "SELECT name FROM agents WHERE id = $1", *flagged.AgentID).Scan(&name)
		if err == nil {
			alert.AgentName = name
		}
	}
	if flagged.CityID != nil {
		var name string
		err := s.pool.QueryRow(ctx, "SELECT name FROM cities WHERE id = $1", *flagged.CityID).Scan(&name)
		if err == nil {
			alert.CityName = name
		}
	}

	if err := s.sender.SendEscalationAlert(ctx, alert); err != nil {
		s.log.Error("escalation alert delivery failed",
			"call_id", alert.CallID,
			"error", err,
		)
		return err
	}

	s.log.Info("escalation alert sent", "call_id", alert.CallID)
	return nil
}
