package models

import "github.com/uptrace/bun"

// UserSettings holds per-user preferences. A row is created lazily with the
// configured default timezone the first time a user's timezone is read.
type UserSettings struct {
	bun.BaseModel `bun:"table:user_settings"`

	UserID   int64  `bun:"user_id,pk" json:"user_id"`
	Timezone string `bun:"timezone,notnull" json:"timezone"`
}
