package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/repository/memory"
)

type stubAlbums struct {
	items []AlbumItem
	err   error
}

func (s *stubAlbums) Fetch(ctx context.Context, albumRef string) ([]AlbumItem, error) {
	return s.items, s.err
}

func albumOf(labels ...string) []AlbumItem {
	items := make([]AlbumItem, len(labels))
	for i, label := range labels {
		items[i] = AlbumItem{
			Attachment: fmt.Sprintf("photo_%d", i+1),
			Label:      label,
		}
	}
	return items
}

func TestFromAlbum(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ing := NewIngestor(&stubAlbums{
		items: albumOf("Кот", "собака", "ДОМ дерево", "река", "гора", "море"),
	}, store.Collections())

	col, err := ing.FromAlbum(ctx, "album://1", "Пользовательская")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	images, err := store.Collections().Images(ctx, col.ID)
	if err != nil {
		t.Fatalf("images: %v", err)
	}
	if len(images) != 6 {
		t.Fatalf("images: got %d, want 6", len(images))
	}
	// Подписи приводятся к нижнему регистру и режутся по пробелам.
	if got := images[0].Words; len(got) != 1 || got[0] != "кот" {
		t.Errorf("first label: got %v, want [кот]", got)
	}
	if got := images[2].Words; len(got) != 2 || got[0] != "дом" || got[1] != "дерево" {
		t.Errorf("multi-word label: got %v, want [дом дерево]", got)
	}
}

func TestFromAlbumTooFewImages(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ing := NewIngestor(&stubAlbums{
		items: albumOf("кот", "собака", "дом", "река", "гора"),
	}, store.Collections())

	_, err := ing.FromAlbum(ctx, "album://1", "Пользовательская")
	if !errors.Is(err, ErrTooFewImages) {
		t.Fatalf("got %v, want ErrTooFewImages", err)
	}

	// Коллекция не сохраняется частично.
	cols, images, _ := store.Collections().Stats(ctx)
	if cols != 0 || images != 0 {
		t.Errorf("nothing must be saved, got %d collections, %d images", cols, images)
	}
}

func TestFromAlbumEmptyLabel(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ing := NewIngestor(&stubAlbums{
		items: albumOf("кот", "   ", "дом", "река", "гора", "море"),
	}, store.Collections())

	_, err := ing.FromAlbum(ctx, "album://1", "Пользовательская")
	if !errors.Is(err, ErrEmptyLabel) {
		t.Fatalf("got %v, want ErrEmptyLabel", err)
	}
}

func TestFromAlbumSourceError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	boom := errors.New("альбом недоступен")
	ing := NewIngestor(&stubAlbums{err: boom}, store.Collections())

	_, err := ing.FromAlbum(ctx, "album://1", "Пользовательская")
	if !errors.Is(err, boom) {
		t.Fatalf("source error must be wrapped, got %v", err)
	}
}
