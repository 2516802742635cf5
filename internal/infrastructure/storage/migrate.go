package storage

import (
	"context"
	"fmt"
	"strings"
)

type migration struct {
	name string
	sql  string
	// substrings of errors meaning the step was already applied
	ignore []string
}

// Steps are additive so an already migrated database can run them again.
var migrations = []migration{
	{
		name: "create articles",
		sql: `CREATE TABLE IF NOT EXISTS articles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
			title       TEXT,
			outlet      TEXT,
			url         TEXT,
			notified    BOOLEAN,
			recorded_at DATETIME
		)`,
	},
	{
		name:   "add notification_id",
		sql:    `ALTER TABLE articles ADD COLUMN notification_id TEXT DEFAULT NULL`,
		ignore: []string{"duplicate column"},
	},
	{
		name:   "unique url index",
		sql:    `CREATE UNIQUE INDEX idx_articles_url ON articles(url)`,
		ignore: []string{"already exists"},
	},
	{
		name: "title lookup index",
		sql:  `CREATE INDEX IF NOT EXISTS idx_articles_title_recorded ON articles(title, recorded_at)`,
	},
}

// Migrate applies every schema step, tolerating steps that already ran.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := r.db.ExecContext(ctx, m.sql); err != nil {
			if alreadyApplied(err, m.ignore) {
				continue
			}
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	return nil
}

func alreadyApplied(err error, markers []string) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
