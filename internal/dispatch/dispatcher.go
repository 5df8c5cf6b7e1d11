package dispatch

import (
	"context"
	"fmt"
	"time"

	"remindbot/internal/logger"
	"remindbot/internal/models"
)

// DBLayer is the slice of the data store the dispatch loop needs.
type DBLayer interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	GetUserTimezone(ctx context.Context, userID int64, defaultTimezone string) (string, error)
	DueReminders(ctx context.Context, userID int64, localDate, localTime string) ([]models.DueReminder, error)
	DeleteReminder(ctx context.Context, reminderID int64) error
}

// DeliveryChannel sends a text payload to a recipient. Failures are expected
// to be transient and must not abort the rest of a cycle.
type DeliveryChannel interface {
	Deliver(ctx context.Context, recipientID int64, text string) error
}

// AuditPublisher records successful deliveries on a side channel. Optional;
// publish failures never affect the cycle.
type AuditPublisher interface {
	PublishDelivery(userID, reminderID int64, eventName string) error
}

// Dispatcher is the single background loop that matches due reminders against
// each user's local wall clock and delivers them exactly once.
//
// Matching is done per user in the user's own timezone: reminder date/time
// are stored as user-local text with no offset, so "now" has to be recomputed
// per user rather than once in UTC.
type Dispatcher struct {
	DB      DBLayer
	Channel DeliveryChannel
	Audit   AuditPublisher
	Logger  *logger.Logger

	DefaultTimezone string
	Interval        time.Duration

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewDispatcher(db DBLayer, channel DeliveryChannel, log *logger.Logger, defaultTimezone string, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		DB:              db,
		Channel:         channel,
		Logger:          log,
		DefaultTimezone: defaultTimezone,
		Interval:        interval,
		Now:             time.Now,
	}
}

// Run executes cycles on the fixed interval until the context is cancelled.
// Cancellation interrupts the sleep; an in-flight cycle runs to completion.
func (d *Dispatcher) Run(ctx context.Context) {
	d.Logger.Info("DISPATCH", fmt.Sprintf("reminder dispatcher started, interval %s", d.Interval))

	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		d.RunCycle(ctx)

		select {
		case <-ctx.Done():
			d.Logger.Info("DISPATCH", "reminder dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle does one full pass over all known users. A failure for one user is
// logged and never prevents processing of the remaining users.
func (d *Dispatcher) RunCycle(ctx context.Context) {
	userIDs, err := d.DB.ListUserIDs(ctx)
	if err != nil {
		d.Logger.Error("DISPATCH", fmt.Sprintf("failed to enumerate users: %v", err))
		return
	}

	for _, userID := range userIDs {
		if err := d.processUser(ctx, userID); err != nil {
			d.Logger.Error("DISPATCH", fmt.Sprintf("failed to process user %d: %v", userID, err))
		}
	}
}

func (d *Dispatcher) processUser(ctx context.Context, userID int64) error {
	timezone, err := d.DB.GetUserTimezone(ctx, userID, d.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("resolve timezone: %w", err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	now := d.Now().In(loc)
	localDate := now.Format(models.DateLayout)
	localTime := now.Format(models.TimeLayout)

	due, err := d.DB.DueReminders(ctx, userID, localDate, localTime)
	if err != nil {
		return fmt.Errorf("query due reminders: %w", err)
	}

	for _, reminder := range due {
		text := fmt.Sprintf("🔔 REMINDER 🔔\n\nEvent: %s\nDate: %s\nTime: %s",
			reminder.EventName, reminder.EventDate, reminder.EventTime)

		if err := d.Channel.Deliver(ctx, reminder.UserID, text); err != nil {
			// Keep the reminder: it can still match on the next cycle while
			// the minute has not passed.
			d.Logger.Error("DISPATCH", fmt.Sprintf("delivery to user %d failed: %v", reminder.UserID, err))
			continue
		}
		d.Logger.LogDelivery(reminder.UserID, reminder.EventName, "reminder delivered")

		if err := d.DB.DeleteReminder(ctx, reminder.ID); err != nil {
			d.Logger.Error("DISPATCH", fmt.Sprintf("failed to delete reminder %d: %v", reminder.ID, err))
			continue
		}

		if d.Audit != nil {
			if err := d.Audit.PublishDelivery(reminder.UserID, reminder.ID, reminder.EventName); err != nil {
				d.Logger.Warn("DISPATCH", fmt.Sprintf("audit publish failed: %v", err))
			}
		}
	}

	return nil
}
