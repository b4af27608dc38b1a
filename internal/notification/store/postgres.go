// Package store persists notifications in PostgreSQL. Channel-specific
// fields live in per-channel JSONB columns on a single table.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/models"
)

const notificationColumns = `id, channel, scope, scope_target, status, send_after, completed_at, callback, email, sms, push`

type NotificationStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewNotificationStore(db *sql.DB, log logger.Logger) *NotificationStore {
	return &NotificationStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// Save inserts a new notification.
func (s *NotificationStore) Save(ctx context.Context, n *models.Notification) error {
	scopeTarget, err := json.Marshal(n.ScopeTarget)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal scope target", err)
	}
	callback, err := marshalNullable(n.Callback)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal callback", err)
	}
	email, err := marshalNullable(n.Email)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal email fields", err)
	}
	sms, err := marshalNullable(n.SMS)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal sms fields", err)
	}
	push, err := marshalNullable(n.Push)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal push fields", err)
	}

	query := `INSERT INTO notifications (` + notificationColumns + `, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = s.db.ExecContext(ctx, query,
		n.ID, string(n.Channel), string(n.Scope), scopeTarget, string(n.Status),
		nullableTime(n.SendAfter), nullableTime(n.CompletedAt),
		callback, email, sms, push, time.Now().UTC())
	if err != nil {
		return errors.NewQueryExecutionFailedError("insert notification", err)
	}
	return nil
}

// FindByID loads one notification.
func (s *NotificationStore) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewEntityNotFoundError("notification", id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("select notification", err)
	}
	return n, nil
}

// MarkCompleted stamps the completion time and flips the status to sent.
// Re-dispatching an already completed notification overwrites the stamp.
func (s *NotificationStore) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE notifications SET status = $1, completed_at = $2 WHERE id = $3`
	res, err := s.db.ExecContext(ctx, query, string(models.StatusSent), at.UTC(), id)
	if err != nil {
		return errors.NewQueryExecutionFailedError("mark notification completed", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return errors.NewEntityNotFoundError("notification", id)
	}
	return nil
}

// MarkFailed flips the status to failed without stamping completion.
func (s *NotificationStore) MarkFailed(ctx context.Context, id string) error {
	query := `UPDATE notifications SET status = $1 WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, query, string(models.StatusFailed), id); err != nil {
		return errors.NewQueryExecutionFailedError("mark notification failed", err)
	}
	return nil
}

// ListByUser returns the notifications whose scope target contains the user.
func (s *NotificationStore) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	target, err := json.Marshal([]string{userID})
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("marshal scope target", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE scope_target @> $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list notifications by user", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan notification", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list notifications by user", err)
	}
	return out, nil
}

// Delete removes one notification.
func (s *NotificationStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return errors.NewQueryExecutionFailedError("delete notification", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return errors.NewEntityNotFoundError("notification", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n           models.Notification
		channel     string
		scope       string
		status      string
		scopeTarget []byte
		sendAfter   sql.NullTime
		completedAt sql.NullTime
		callback    []byte
		email       []byte
		sms         []byte
		push        []byte
	)

	err := row.Scan(&n.ID, &channel, &scope, &scopeTarget, &status,
		&sendAfter, &completedAt, &callback, &email, &sms, &push)
	if err != nil {
		return nil, err
	}

	n.Channel = models.Channel(channel)
	n.Scope = models.Scope(scope)
	n.Status = models.Status(status)

	if len(scopeTarget) > 0 {
		if err := json.Unmarshal(scopeTarget, &n.ScopeTarget); err != nil {
			return nil, err
		}
	}
	if sendAfter.Valid {
		t := sendAfter.Time
		n.SendAfter = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		n.CompletedAt = &t
	}
	if err := unmarshalNullable(callback, &n.Callback); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(email, &n.Email); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(sms, &n.SMS); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(push, &n.Push); err != nil {
		return nil, err
	}
	return &n, nil
}

func marshalNullable(v interface{}) (interface{}, error) {
	if isNilPointer(v) {
		return nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func unmarshalNullable(data []byte, target interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}

func isNilPointer(v interface{}) bool {
	switch p := v.(type) {
	case *models.EmailFields:
		return p == nil
	case *models.SMSFields:
		return p == nil
	case *models.PushFields:
		return p == nil
	case *models.Callback:
		return p == nil
	default:
		return v == nil
	}
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
