package models

import "github.com/uptrace/bun"

// Event is a calendar entry owned by one chat user. Date and time are kept as
// formatted text ("DD.MM.YYYY" / "HH:MM") and interpreted in the owner's
// timezone at read time; there is no combined timestamp column.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:event"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	UserID    int64  `bun:"user_id,notnull" json:"user_id"`
	Name      string `bun:"name,notnull" json:"name"`
	EventDate string `bun:"event_date,notnull" json:"event_date"`
	EventTime string `bun:"event_time,notnull" json:"event_time"`
}
