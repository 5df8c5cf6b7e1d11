package models

import "github.com/uptrace/bun"

// Reminder fires exactly once when the owning user's local wall clock reads
// ReminderDate + ReminderTime, then it is deleted. Reminders are removed in a
// cascade when their event is deleted.
type Reminder struct {
	bun.BaseModel `bun:"table:reminders,alias:reminder"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	EventID      int64  `bun:"event_id,notnull" json:"event_id"`
	ReminderDate string `bun:"reminder_date,notnull" json:"reminder_date"`
	ReminderTime string `bun:"reminder_time,notnull" json:"reminder_time"`
}

// DueReminder is a reminder joined with its owning event, as returned by the
// due-reminder query the dispatch loop runs.
type DueReminder struct {
	ID        int64  `bun:"id"`
	UserID    int64  `bun:"user_id"`
	EventName string `bun:"name"`
	EventDate string `bun:"event_date"`
	EventTime string `bun:"event_time"`
}
