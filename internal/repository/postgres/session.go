package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, code, status, stage, single, with_host, creator_id,
	winner_id, collection_id, current_order, current_word, correct_slot, created_at`

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO sessions (code, status, stage, single, with_host, creator_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		s.Code, s.Status, s.Stage, s.Single, s.WithHost, s.CreatorID,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id int64) (*domain.Session, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *SessionRepository) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE code = $1`, code)
	return scanSession(row)
}

func (r *SessionRepository) Update(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET status = $2, stage = $3, winner_id = $4, collection_id = $5,
			current_order = $6, current_word = $7, correct_slot = $8
		 WHERE id = $1`,
		s.ID, s.Status, s.Stage, s.WinnerID, s.CollectionID,
		s.CurrentOrder, s.CurrentWord, s.CorrectSlot)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// AddUsedImages — объединение множеств: повторное добавление безвредно.
func (r *SessionRepository) AddUsedImages(ctx context.Context, sessionID int64, imageIDs ...int64) error {
	for _, id := range imageIDs {
		_, err := r.db.Pool.Exec(ctx,
			`INSERT INTO session_used_images (session_id, image_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			sessionID, id)
		if err != nil {
			return fmt.Errorf("add used image: %w", err)
		}
	}
	return nil
}

func (r *SessionRepository) UsedImages(ctx context.Context, sessionID int64) (map[int64]struct{}, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT image_id FROM session_used_images WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("used images: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan used image: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (r *SessionRepository) Active(ctx context.Context) ([]*domain.Session, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE status <> $1 ORDER BY id`,
		domain.StatusFinished)
	if err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.Code, &s.Status, &s.Stage, &s.Single, &s.WithHost,
		&s.CreatorID, &s.WinnerID, &s.CollectionID, &s.CurrentOrder,
		&s.CurrentWord, &s.CorrectSlot, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}
