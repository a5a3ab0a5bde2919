package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
	pubnub "github.com/pubnub/go"

	"github.com/Micheal-18/tick.backend/models"
	"github.com/Micheal-18/tick.backend/monitoring"
)

// NotifyService delivers post-commit confirmations: an email with the
// ticket code to the buyer and a realtime push to the organizer channel.
// Dispatch is a task queue decoupled from the request lifecycle; a
// delivery failure is logged and counted, never escalated, and never
// touches the committed financial state.
type NotifyService struct {
	app    core.App
	pubnub *pubnub.PubNub
	sender mail.Address
	tasks  chan notifyTask
	logger *slog.Logger
}

type notifyTask struct {
	ticket *models.Ticket
	event  *models.Event
}

func NewNotifyService(app core.App, pn *pubnub.PubNub, senderName, senderAddress string, queueSize int, logger *slog.Logger) *NotifyService {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &NotifyService{
		app:    app,
		pubnub: pn,
		sender: mail.Address{Name: senderName, Address: senderAddress},
		tasks:  make(chan notifyTask, queueSize),
		logger: logger,
	}
}

// Start runs the dispatch worker until ctx is cancelled.
func (s *NotifyService) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.tasks:
			s.deliver(task)
		}
	}
}

// TicketSold enqueues a confirmation for a committed ticket sale. Never
// blocks the caller: when the queue is full the notification is dropped
// and logged.
func (s *NotifyService) TicketSold(ticket *models.Ticket, event *models.Event) {
	select {
	case s.tasks <- notifyTask{ticket: ticket, event: event}:
	default:
		monitoring.TrackNotificationFailure("queue")
		s.logger.Warn("notify: queue full, dropping confirmation", "reference", ticket.Reference)
	}
}

func (s *NotifyService) deliver(task notifyTask) {
	if err := s.sendEmail(task.ticket, task.event); err != nil {
		monitoring.TrackNotificationFailure("email")
		s.logger.Error("notify: email failed", "reference", task.ticket.Reference, "error", err)
	}
	s.publishRealtime(task.ticket, task.event)
}

func (s *NotifyService) sendEmail(ticket *models.Ticket, event *models.Event) error {
	if ticket.BuyerEmail == "" {
		return nil
	}

	html := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your payment for <strong>%s</strong> is confirmed.</p>
<p>Reference: %s<br>Tickets: %d x %s<br>Amount: %d</p>
<p><img src=%q alt="ticket code"></p>`,
		ticket.BuyerName, event.Name, ticket.Reference,
		ticket.Quantity, ticket.Label, ticket.Amount, ticket.QRPayload,
	)

	message := &mailer.Message{
		From:    s.sender,
		To:      []mail.Address{{Name: ticket.BuyerName, Address: ticket.BuyerEmail}},
		Subject: fmt.Sprintf("Your ticket for %s", event.Name),
		HTML:    html,
	}
	return s.app.NewMailClient().Send(message)
}

func (s *NotifyService) publishRealtime(ticket *models.Ticket, event *models.Event) {
	if s.pubnub == nil {
		return
	}

	channel := fmt.Sprintf("organizer-%s", event.OwnerID)
	_, _, err := s.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":      "ticket_sold",
			"event_id":  event.ID,
			"reference": ticket.Reference,
			"quantity":  ticket.Quantity,
			"amount":    ticket.Amount,
		}).
		Execute()
	if err != nil {
		monitoring.TrackNotificationFailure("pubnub")
		s.logger.Error("notify: publish failed", "channel", channel, "error", err)
	}
}
