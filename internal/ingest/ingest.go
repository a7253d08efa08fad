// Package ingest загружает коллекции карточек: пользовательские из внешнего
// альбома и стандартную из файла данных.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
)

var (
	ErrTooFewImages = errors.New("в альбоме меньше шести подписанных изображений")
	ErrEmptyLabel   = errors.New("у изображения пустая подпись")
)

// AlbumItem — одна запись альбома: ссылка на вложение и подпись со словами.
type AlbumItem struct {
	Attachment string `json:"attachment"`
	Label      string `json:"label"`
}

// AlbumSource отдаёт содержимое внешнего альбома по ссылке.
type AlbumSource interface {
	Fetch(ctx context.Context, albumRef string) ([]AlbumItem, error)
}

type Ingestor struct {
	albums      AlbumSource
	collections game.CollectionRepo
}

func NewIngestor(albums AlbumSource, collections game.CollectionRepo) *Ingestor {
	return &Ingestor{albums: albums, collections: collections}
}

// FromAlbum собирает пользовательскую коллекцию из альбома. Коллекция
// сохраняется целиком или не сохраняется вовсе.
func (ing *Ingestor) FromAlbum(ctx context.Context, albumRef, name string) (*domain.Collection, error) {
	items, err := ing.albums.Fetch(ctx, albumRef)
	if err != nil {
		return nil, fmt.Errorf("fetch album: %w", err)
	}

	images, err := buildImages(items)
	if err != nil {
		return nil, err
	}

	col := &domain.Collection{Name: name}
	if err := ing.collections.Create(ctx, col, images); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	return col, nil
}

// buildImages валидирует записи альбома и разбирает подписи на слова:
// подпись приводится к нижнему регистру и режется по пробелам.
func buildImages(items []AlbumItem) ([]domain.Image, error) {
	images := make([]domain.Image, 0, len(items))
	for _, item := range items {
		words := strings.Fields(strings.ToLower(item.Label))
		if len(words) == 0 {
			return nil, ErrEmptyLabel
		}
		images = append(images, domain.Image{
			Attachment: item.Attachment,
			Words:      words,
		})
	}
	if len(images) < domain.MinCollectionImages {
		return nil, ErrTooFewImages
	}
	return images, nil
}
