package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/pkg/rabbitmq"
)

// Notifier is the notification collaborator. All sends are fire-and-forget:
// failures are logged by callers, never surfaced to the booking transaction.
type Notifier interface {
	SendConfirmation(ctx context.Context, booking *models.AuditionBooking) error
	SendReminder(ctx context.Context, booking *models.AuditionBooking, offsetLabel string) error
	SendRescheduleNotice(ctx context.Context, booking *models.AuditionBooking, oldSlotID uuid.UUID) error
	SendCancellationNotice(ctx context.Context, booking *models.AuditionBooking) error
	SendWaitlistNotice(ctx context.Context, booking *models.AuditionBooking) error
	SendWaitlistPromotion(ctx context.Context, booking *models.AuditionBooking) error
}

const (
	ExchangeName = "audition.notifications"
	ExchangeKind = "topic"
)

// Routing keys consumed by the delivery worker.
const (
	keyConfirmation = "audition.booking.confirmed"
	keyReminder     = "audition.booking.reminder"
	keyReschedule   = "audition.booking.rescheduled"
	keyCancellation = "audition.booking.cancelled"
	keyWaitlist     = "audition.booking.waitlisted"
	keyPromotion    = "audition.booking.promoted"
)

type message struct {
	BookingID        string    `json:"booking_id"`
	TalentID         string    `json:"talent_id"`
	SlotID           string    `json:"slot_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	OffsetLabel      string    `json:"offset_label,omitempty"`
	OldSlotID        string    `json:"old_slot_id,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	SentAt           time.Time `json:"sent_at"`
}

// AMQPNotifier publishes notification messages to a topic exchange; an
// external delivery worker turns them into email/SMS/push.
type AMQPNotifier struct {
	publisher *rabbitmq.Publisher
}

func NewAMQPNotifier(url string) (*AMQPNotifier, error) {
	pub, err := rabbitmq.NewPublisher(url, ExchangeName, ExchangeKind)
	if err != nil {
		return nil, err
	}
	return &AMQPNotifier{publisher: pub}, nil
}

func (n *AMQPNotifier) Close() {
	n.publisher.Close()
}

func (n *AMQPNotifier) publish(key string, msg message) error {
	msg.SentAt = time.Now().UTC()
	if err := n.publisher.Publish(key, msg); err != nil {
		log.Printf("[Notifier] publish %s failed: %v", key, err)
		return err
	}
	return nil
}

func fromBooking(b *models.AuditionBooking) message {
	return message{
		BookingID:        b.ID.String(),
		TalentID:         b.TalentID.String(),
		SlotID:           b.SlotID.String(),
		ConfirmationCode: b.ConfirmationCode,
	}
}

func (n *AMQPNotifier) SendConfirmation(ctx context.Context, b *models.AuditionBooking) error {
	return n.publish(keyConfirmation, fromBooking(b))
}

func (n *AMQPNotifier) SendReminder(ctx context.Context, b *models.AuditionBooking, offsetLabel string) error {
	msg := fromBooking(b)
	msg.OffsetLabel = offsetLabel
	return n.publish(keyReminder, msg)
}

func (n *AMQPNotifier) SendRescheduleNotice(ctx context.Context, b *models.AuditionBooking, oldSlotID uuid.UUID) error {
	msg := fromBooking(b)
	msg.OldSlotID = oldSlotID.String()
	msg.Reason = b.RescheduleReason
	return n.publish(keyReschedule, msg)
}

func (n *AMQPNotifier) SendCancellationNotice(ctx context.Context, b *models.AuditionBooking) error {
	msg := fromBooking(b)
	msg.Reason = b.CancellationReason
	return n.publish(keyCancellation, msg)
}

func (n *AMQPNotifier) SendWaitlistNotice(ctx context.Context, b *models.AuditionBooking) error {
	return n.publish(keyWaitlist, fromBooking(b))
}

func (n *AMQPNotifier) SendWaitlistPromotion(ctx context.Context, b *models.AuditionBooking) error {
	return n.publish(keyPromotion, fromBooking(b))
}
