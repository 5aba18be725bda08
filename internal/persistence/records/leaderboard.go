package records

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxPage caps how many leaderboard rows one query returns.
const MaxPage = 100

type RetiredDog struct {
	ID        string        `json:"id"`
	DogID     uint64        `json:"dog_id"`
	Name      string        `json:"name"`
	MapID     string        `json:"map_id"`
	Score     int           `json:"score"`
	PlayTime  time.Duration `json:"play_time"`
	RetiredAt time.Time     `json:"retired_at"`
}

// SaveRetired stores every dog in one transaction and returns once it has
// committed. Rows without an ID get a fresh UUID.
func (s *Store) SaveRetired(ctx context.Context, dogs []RetiredDog) error {
	if len(dogs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO retired_dogs(id,dog_id,name,map_id,score,play_time_ms,retired_at) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range dogs {
		d := &dogs[i]
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if d.RetiredAt.IsZero() {
			d.RetiredAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, d.ID, int64(d.DogID), d.Name, d.MapID, d.Score, d.PlayTime.Milliseconds(), d.RetiredAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("save retired dog %d: %w", d.DogID, err)
		}
	}
	return tx.Commit()
}

// Top pages through retired dogs by score (desc), play time (asc), then
// name. limit <= 0 or above MaxPage means MaxPage.
func (s *Store) Top(ctx context.Context, offset, limit int) ([]RetiredDog, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	if limit <= 0 || limit > MaxPage {
		limit = MaxPage
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,dog_id,name,map_id,score,play_time_ms,retired_at
		FROM retired_dogs ORDER BY score DESC, play_time_ms ASC, name ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RetiredDog
	for rows.Next() {
		var (
			d        RetiredDog
			dogID    int64
			playMs   int64
			retiredS string
		)
		if err := rows.Scan(&d.ID, &dogID, &d.Name, &d.MapID, &d.Score, &playMs, &retiredS); err != nil {
			return nil, err
		}
		d.DogID = uint64(dogID)
		d.PlayTime = time.Duration(playMs) * time.Millisecond
		d.RetiredAt, _ = time.Parse(time.RFC3339Nano, retiredS)
		out = append(out, d)
	}
	return out, rows.Err()
}
