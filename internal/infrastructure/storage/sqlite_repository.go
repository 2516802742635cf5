package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/jfilter/track-the-news/internal/domain"
	"github.com/jfilter/track-the-news/internal/ports"
)

const (
	articlesTable = "articles"
	// timeLayout sorts lexicographically, which the recency filter relies on.
	timeLayout = "2006-01-02 15:04:05"
)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SQLiteRepository is the append-only dedup log backed by SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.ArticleRepository = (*SQLiteRepository)(nil)

// Open connects to the SQLite file at dsn and applies migrations.
func Open(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection per process; the unique index does the rest
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 30000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	repo := NewSQLiteRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

// NewSQLiteRepository wires an already opened sql.DB.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Close releases the underlying connection.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// HasSeen reports whether url already has a record.
func (r *SQLiteRepository) HasSeen(ctx context.Context, url string) (bool, error) {
	query, args, err := builder.Select("1").
		From(articlesTable).
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build seen query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query seen: %w", err)
	}
	return true, nil
}

// FindThreadParent returns the notification id of the most recent record
// with exactly this title recorded at or after since. Records without a
// notification id never qualify. An empty string means no parent.
func (r *SQLiteRepository) FindThreadParent(ctx context.Context, title string, since time.Time) (string, error) {
	query, args, err := builder.Select("notification_id").
		From(articlesTable).
		Where(sq.Eq{"title": title}).
		Where(sq.GtOrEq{"recorded_at": since.UTC().Format(timeLayout)}).
		Where(sq.NotEq{"notification_id": nil}).
		Where(sq.NotEq{"notification_id": ""}).
		OrderBy("recorded_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build parent query: %w", err)
	}

	var id string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("query parent: %w", err)
	}
	return id, nil
}

// Record appends one outcome. It returns false without error when the URL
// is already recorded.
func (r *SQLiteRepository) Record(ctx context.Context, record domain.Record) (bool, error) {
	var notificationID any
	if record.NotificationID != "" {
		notificationID = record.NotificationID
	}

	query, args, err := builder.Insert(articlesTable).
		Columns("title", "outlet", "url", "notified", "recorded_at", "notification_id").
		Values(record.Title, record.Outlet, record.URL, record.Notified, record.RecordedAt.UTC().Format(timeLayout), notificationID).
		Suffix("ON CONFLICT(url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// Count returns the number of recorded articles.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := builder.Select("COUNT(*)").From(articlesTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Recent lists the latest records, newest first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit uint64) ([]domain.Record, error) {
	query, args, err := builder.Select("id", "title", "outlet", "url", "notified", "recorded_at", "notification_id").
		From(articlesTable).
		OrderBy("recorded_at DESC", "id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var (
			rec            domain.Record
			title, outlet  sql.NullString
			notified       sql.NullBool
			recordedAt     sql.NullString
			notificationID sql.NullString
		)
		if err := rows.Scan(&rec.ID, &title, &outlet, &rec.URL, &notified, &recordedAt, &notificationID); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Title = title.String
		rec.Outlet = outlet.String
		rec.Notified = notified.Bool
		rec.NotificationID = notificationID.String
		if recordedAt.Valid {
			rec.RecordedAt = parseRecordedAt(recordedAt.String)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

func parseRecordedAt(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
