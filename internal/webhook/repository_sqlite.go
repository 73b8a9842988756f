package webhook

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned for an unknown webhook id.
var ErrNotFound = errors.New("webhook not found")

// Repository persists webhook subscriptions.
type Repository interface {
	List() ([]Webhook, error)
	Create(Webhook) (int64, error)
	Update(id int64, w Webhook) error
	Delete(id int64) error
}

// SQLiteRepo implements Repository over SQLite.
type SQLiteRepo struct {
	DB *sql.DB
}

func (r *SQLiteRepo) List() ([]Webhook, error) {
	rows, err := r.DB.Query(`SELECT id, url, events, enabled FROM webhooks ORDER BY id`)
	if err != nil {
		log.Error().Err(err).Msg("Database error listing webhooks")
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	out := make([]Webhook, 0)
	for rows.Next() {
		var (
			w      Webhook
			events string
		)
		if err := rows.Scan(&w.ID, &w.URL, &events, &w.Enabled); err != nil {
			log.Warn().Err(err).Msg("Skipping unreadable webhook row")
			continue
		}
		w.Events = splitEvents(events)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Create(w Webhook) (int64, error) {
	res, err := r.DB.Exec(`INSERT INTO webhooks(url, events, enabled) VALUES(?,?,?)`,
		w.URL, strings.Join(w.Events, ","), w.Enabled)
	if err != nil {
		log.Error().Err(err).Str("url", w.URL).Msg("Database error creating webhook")
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) Update(id int64, w Webhook) error {
	res, err := r.DB.Exec(`UPDATE webhooks SET url=?, events=?, enabled=? WHERE id=?`,
		w.URL, strings.Join(w.Events, ","), w.Enabled, id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Database error updating webhook")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) Delete(id int64) error {
	res, err := r.DB.Exec(`DELETE FROM webhooks WHERE id=?`, id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Database error deleting webhook")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func splitEvents(s string) []string {
	out := make([]string, 0)
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
