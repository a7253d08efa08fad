package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
)

type CollectionRepository struct {
	db *DB
}

func NewCollectionRepository(db *DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Create сохраняет коллекцию с изображениями в одной транзакции:
// при ошибке частично заполненная коллекция не видна никому.
func (r *CollectionRepository) Create(ctx context.Context, c *domain.Collection, images []domain.Image) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO collections (name, standard) VALUES ($1, $2) RETURNING id, created_at`,
		c.Name, c.Standard,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	for i := range images {
		images[i].CollectionID = c.ID
		err := tx.QueryRow(ctx,
			`INSERT INTO images (collection_id, attachment) VALUES ($1, $2) RETURNING id`,
			c.ID, images[i].Attachment,
		).Scan(&images[i].ID)
		if err != nil {
			return fmt.Errorf("create image: %w", err)
		}
		for _, word := range images[i].Words {
			_, err := tx.Exec(ctx,
				`INSERT INTO image_words (image_id, word) VALUES ($1, $2)`,
				images[i].ID, word)
			if err != nil {
				return fmt.Errorf("create word: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *CollectionRepository) Get(ctx context.Context, id int64) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, standard, created_at FROM collections WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Standard, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &c, nil
}

func (r *CollectionRepository) Standard(ctx context.Context) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, standard, created_at FROM collections WHERE standard = TRUE LIMIT 1`,
	).Scan(&c.ID, &c.Name, &c.Standard, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("get standard collection: %w", err)
	}
	return &c, nil
}

func (r *CollectionRepository) DeleteStandard(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM collections WHERE standard = TRUE`)
	if err != nil {
		return fmt.Errorf("delete standard: %w", err)
	}
	return nil
}

// Images возвращает изображения коллекции в каталожном порядке.
func (r *CollectionRepository) Images(ctx context.Context, collectionID int64) ([]domain.Image, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, collection_id, attachment FROM images WHERE collection_id = $1 ORDER BY id`,
		collectionID)
	if err != nil {
		return nil, fmt.Errorf("collection images: %w", err)
	}
	defer rows.Close()

	var out []domain.Image
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.CollectionID, &img.Attachment); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
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

func (r *CollectionRepository) Stats(ctx context.Context) (collections, images int, err error) {
	err = r.db.Pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM collections), (SELECT COUNT(*) FROM images)`,
	).Scan(&collections, &images)
	if err != nil {
		return 0, 0, fmt.Errorf("collection stats: %w", err)
	}
	return collections, images, nil
}

func imageWords(ctx context.Context, db *DB, imageID int64) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT word FROM image_words WHERE image_id = $1`, imageID)
	if err != nil {
		return nil, fmt.Errorf("image words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}
