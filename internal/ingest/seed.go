package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
)

type seedImage struct {
	Attachment string   `json:"attachment"`
	Words      []string `json:"words"`
}

// SeedStandard загружает стандартную коллекцию из файла данных, если её ещё
// нет в хранилище. Возвращает true, если коллекция была создана.
func SeedStandard(ctx context.Context, collections game.CollectionRepo, path string) (bool, error) {
	if _, err := collections.Standard(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, game.ErrNotFound) {
		return false, fmt.Errorf("check standard: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read seed file: %w", err)
	}

	var seeds []seedImage
	if err := json.Unmarshal(data, &seeds); err != nil {
		return false, fmt.Errorf("decode seed file: %w", err)
	}
	if len(seeds) < domain.MinCollectionImages {
		return false, ErrTooFewImages
	}

	images := make([]domain.Image, 0, len(seeds))
	for _, s := range seeds {
		images = append(images, domain.Image{
			Attachment: s.Attachment,
			Words:      s.Words,
		})
	}

	col := &domain.Collection{Name: "Стандартная", Standard: true}
	if err := collections.Create(ctx, col, images); err != nil {
		return false, fmt.Errorf("save standard collection: %w", err)
	}
	return true, nil
}
