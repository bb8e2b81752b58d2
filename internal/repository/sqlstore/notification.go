package sqlstore

import (
	"context"
	"fmt"

	"github.com/garnizeh/marketplace/pkg/models"
)

const notificationColumns = `id, user_id, type, title, message, job_id, quote_id, is_read, created_at`

func (r *SQLRepo) InsertNotification(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is nil")
	}
	if n.Created == 0 {
		n.Created = now()
	}
	_, err := r.exec(ctx, `INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.JobID, n.QuoteID, n.Read, n.Created)
	return err
}

// TrimNotifications keeps the newest `keep` rows. Running it after every
// insert makes the cap converge even when inserts for one user race.
func (r *SQLRepo) TrimNotifications(ctx context.Context, userID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	return r.execAffected(ctx, `DELETE FROM notifications WHERE user_id = ? AND id NOT IN (
			SELECT id FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		)`, userID, userID, keep)
}

func (r *SQLRepo) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 8
	}
	var out []models.Notification
	if err := r.selectAll(ctx, &out, `SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.get(ctx, &n, `SELECT COUNT(1) FROM notifications WHERE user_id = ? AND is_read = ?`, userID, false)
	return n, err
}

func (r *SQLRepo) MarkRead(ctx context.Context, id, userID string) error {
	n, err := r.execAffected(ctx, `UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`, true, id, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *SQLRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return r.execAffected(ctx, `UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`, true, userID, false)
}
