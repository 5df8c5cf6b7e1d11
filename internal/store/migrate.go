package store

import (
	"context"

	"github.com/uptrace/bun"

	"remindbot/internal/models"
)

// Migrate creates the schema if it does not exist yet. Existing rows are kept.
func Migrate(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Event)(nil),
		(*models.Reminder)(nil),
		(*models.UserSettings)(nil),
	}
	for _, table := range tables {
		if _, err := db.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
