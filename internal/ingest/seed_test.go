package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/repository/memory"
)

const seedJSON = `[
	{"attachment": "photo_1", "words": ["кот"]},
	{"attachment": "photo_2", "words": ["собака"]},
	{"attachment": "photo_3", "words": ["дом", "дерево"]},
	{"attachment": "photo_4", "words": ["река"]},
	{"attachment": "photo_5", "words": ["гора"]},
	{"attachment": "photo_6", "words": ["море"]}
]`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standard.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

func TestSeedStandard(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	path := writeSeed(t, seedJSON)

	created, err := SeedStandard(ctx, store.Collections(), path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !created {
		t.Fatal("first seed must create the collection")
	}

	col, err := store.Collections().Standard(ctx)
	if err != nil {
		t.Fatalf("standard: %v", err)
	}
	images, _ := store.Collections().Images(ctx, col.ID)
	if len(images) != 6 {
		t.Errorf("images: got %d, want 6", len(images))
	}

	// Повторный запуск ничего не пересоздаёт.
	created, err = SeedStandard(ctx, store.Collections(), path)
	if err != nil {
		t.Fatalf("repeat seed: %v", err)
	}
	if created {
		t.Error("existing collection must not be re-seeded")
	}
}

func TestSeedStandardTooSmall(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	path := writeSeed(t, `[{"attachment": "photo_1", "words": ["кот"]}]`)

	if _, err := SeedStandard(ctx, store.Collections(), path); err != ErrTooFewImages {
		t.Fatalf("got %v, want ErrTooFewImages", err)
	}
}

func TestSeedStandardMissingFile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	if _, err := SeedStandard(ctx, store.Collections(), filepath.Join(t.TempDir(), "нет.json")); err == nil {
		t.Fatal("missing seed file must be reported")
	}
}
