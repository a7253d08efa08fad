package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
)

type PlayerRepository struct {
	db *DB
}

func NewPlayerRepository(db *DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

const playerColumns = `id, chat_id, name, session_id, score, answered, answer,
	is_host, was_host, sent_card, card_slot, created_at`

func (r *PlayerRepository) GetByChatID(ctx context.Context, chatID int64) (*domain.Player, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE chat_id = $1`, chatID)
	return scanPlayer(row)
}

func (r *PlayerRepository) Create(ctx context.Context, chatID int64, name string) (*domain.Player, error) {
	// Два первых сообщения из одного чата могут прийти одновременно:
	// upsert по chat_id оставляет ровно одну запись.
	row := r.db.Pool.QueryRow(ctx,
		`INSERT INTO players (chat_id, name) VALUES ($1, $2)
		 ON CONFLICT (chat_id) DO UPDATE SET name = EXCLUDED.name
		 RETURNING `+playerColumns,
		chatID, name)
	p, err := scanPlayer(row)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return p, nil
}

func (r *PlayerRepository) Update(ctx context.Context, p *domain.Player) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET name = $2, session_id = $3, score = $4, answered = $5,
			answer = $6, is_host = $7, was_host = $8, sent_card = $9, card_slot = $10
		 WHERE id = $1`,
		p.ID, p.Name, p.SessionID, p.Score, p.Answered,
		p.Answer, p.IsHost, p.WasHost, p.SentCard, p.CardSlot)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	return nil
}

func (r *PlayerRepository) BySession(ctx context.Context, sessionID int64) ([]*domain.Player, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+playerColumns+` FROM players WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("players by session: %w", err)
	}
	defer rows.Close()

	var out []*domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkAnswered фиксирует ответ, только если игрок ещё не отвечал:
// условный UPDATE гарантирует, что ответ засчитается ровно один раз,
// даже если два события пришли одновременно.
func (r *PlayerRepository) MarkAnswered(ctx context.Context, playerID int64, answer int) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET answered = TRUE, answer = $2
		 WHERE id = $1 AND answered = FALSE`,
		playerID, answer)
	if err != nil {
		return false, fmt.Errorf("mark answered: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PlayerRepository) Hand(ctx context.Context, playerID int64) ([]domain.Image, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT i.id, i.collection_id, i.attachment
		 FROM player_hand_images h
		 JOIN images i ON i.id = h.image_id
		 WHERE h.player_id = $1
		 ORDER BY h.id`,
		playerID)
	if err != nil {
		return nil, fmt.Errorf("player hand: %w", err)
	}
	defer rows.Close()

	var out []domain.Image
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.CollectionID, &img.Attachment); err != nil {
			return nil, fmt.Errorf("scan hand image: %w", err)
		}
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		words, err := imageWords(ctx, r.db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Words = words
	}
	return out, nil
}

func (r *PlayerRepository) AddToHand(ctx context.Context, playerID int64, imageIDs ...int64) error {
	for _, id := range imageIDs {
		_, err := r.db.Pool.Exec(ctx,
			`INSERT INTO player_hand_images (player_id, image_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			playerID, id)
		if err != nil {
			return fmt.Errorf("add to hand: %w", err)
		}
	}
	return nil
}

func (r *PlayerRepository) RemoveFromHand(ctx context.Context, playerID, imageID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM player_hand_images WHERE player_id = $1 AND image_id = $2`,
		playerID, imageID)
	if err != nil {
		return fmt.Errorf("remove from hand: %w", err)
	}
	return nil
}

func (r *PlayerRepository) ClearHand(ctx context.Context, playerID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM player_hand_images WHERE player_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("clear hand: %w", err)
	}
	return nil
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(&p.ID, &p.ChatID, &p.Name, &p.SessionID, &p.Score, &p.Answered,
		&p.Answer, &p.IsHost, &p.WasHost, &p.SentCard, &p.CardSlot, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	return &p, nil
}
