package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"remindbot/internal/models"
)

var ErrNotFound = errors.New("store: not found")

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

// CreateEvent inserts the event and returns the store-assigned id.
func (d *DB) CreateEvent(ctx context.Context, userID int64, name, date, timeOfDay string) (int64, error) {
	event := &models.Event{
		UserID:    userID,
		Name:      name,
		EventDate: date,
		EventTime: timeOfDay,
	}
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	if err != nil {
		return 0, err
	}
	return event.ID, nil
}

func (d *DB) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents returns the user's events ordered by date then time. Dates are
// "DD.MM.YYYY" text, so the order is the same lexicographic order the
// original schema produced.
func (d *DB) ListEvents(ctx context.Context, userID int64) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("user_id = ?", userID).
		Order("event_date", "event_time").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListEventsWithReminders returns the distinct events of the user that own at
// least one reminder.
func (d *DB) ListEventsWithReminders(ctx context.Context, userID int64) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		ColumnExpr("DISTINCT event.id, event.user_id, event.name, event.event_date, event.event_time").
		Join("JOIN reminders AS r ON r.event_id = event.id").
		Where("event.user_id = ?", userID).
		Order("event_date", "event_time").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteEvent removes the event and all reminders that reference it in one
// transaction.
func (d *DB) DeleteEvent(ctx context.Context, eventID int64) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Reminder)(nil)).
			Where("event_id = ?", eventID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", eventID).
			Exec(ctx)
		return err
	})
}

// ---------------- REMINDERS ----------------

func (d *DB) CreateReminder(ctx context.Context, eventID int64, date, timeOfDay string) (int64, error) {
	reminder := &models.Reminder{
		EventID:      eventID,
		ReminderDate: date,
		ReminderTime: timeOfDay,
	}
	_, err := d.Bun.NewInsert().Model(reminder).Exec(ctx)
	if err != nil {
		return 0, err
	}
	return reminder.ID, nil
}

func (d *DB) GetReminder(ctx context.Context, reminderID int64) (*models.Reminder, error) {
	var reminder models.Reminder
	err := d.Bun.NewSelect().
		Model(&reminder).
		Where("id = ?", reminderID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (d *DB) ListReminders(ctx context.Context, eventID int64) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := d.Bun.NewSelect().
		Model(&reminders).
		Where("event_id = ?", eventID).
		Order("reminder_date", "reminder_time").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

// DeleteReminder is idempotent: deleting an id that is already gone is a
// no-op, not an error. The dispatch loop and a user's delete flow may race on
// the same id.
func (d *DB) DeleteReminder(ctx context.Context, reminderID int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Reminder)(nil)).
		Where("id = ?", reminderID).
		Exec(ctx)
	return err
}

func (d *DB) CountReminders(ctx context.Context, eventID int64) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Reminder)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
}

// DueReminders returns the user's reminders whose stored date and time equal
// the given local date and minute exactly, joined with their owning events.
func (d *DB) DueReminders(ctx context.Context, userID int64, localDate, localTime string) ([]models.DueReminder, error) {
	var due []models.DueReminder
	err := d.Bun.NewSelect().
		ColumnExpr("r.id, e.user_id, e.name, e.event_date, e.event_time").
		TableExpr("reminders AS r").
		Join("JOIN events AS e ON r.event_id = e.id").
		Where("e.user_id = ?", userID).
		Where("r.reminder_date = ?", localDate).
		Where("r.reminder_time = ?", localTime).
		Scan(ctx, &due)
	if err != nil {
		return nil, err
	}
	return due, nil
}

// ---------------- USER SETTINGS ----------------

// GetUserTimezone returns the user's timezone, inserting a row with the given
// default when the user has none yet.
func (d *DB) GetUserTimezone(ctx context.Context, userID int64, defaultTimezone string) (string, error) {
	var settings models.UserSettings
	err := d.Bun.NewSelect().
		Model(&settings).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		settings = models.UserSettings{UserID: userID, Timezone: defaultTimezone}
		if _, err := d.Bun.NewInsert().Model(&settings).Exec(ctx); err != nil {
			return "", err
		}
		return defaultTimezone, nil
	}
	if err != nil {
		return "", err
	}
	return settings.Timezone, nil
}

func (d *DB) SetUserTimezone(ctx context.Context, userID int64, timezone string) error {
	settings := &models.UserSettings{UserID: userID, Timezone: timezone}
	_, err := d.Bun.NewInsert().
		Model(settings).
		On("CONFLICT (user_id) DO UPDATE").
		Set("timezone = EXCLUDED.timezone").
		Exec(ctx)
	return err
}

// ListUserIDs enumerates the users the dispatch loop must check: everyone with
// a settings row, or, when that table is still empty, everyone who owns an
// event.
func (d *DB) ListUserIDs(ctx context.Context) ([]int64, error) {
	var userIDs []int64
	err := d.Bun.NewSelect().
		ColumnExpr("DISTINCT user_id").
		Table("user_settings").
		Scan(ctx, &userIDs)
	if err != nil {
		return nil, err
	}
	if len(userIDs) > 0 {
		return userIDs, nil
	}

	err = d.Bun.NewSelect().
		ColumnExpr("DISTINCT user_id").
		Table("events").
		Scan(ctx, &userIDs)
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
