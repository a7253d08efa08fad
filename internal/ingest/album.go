package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// HTTPAlbumSource читает альбом по URL: ожидается JSON-массив записей
// {"attachment": ..., "label": ...}. Сетевые сбои повторяются с экспоненциальной
// задержкой, чтобы разовая ошибка не срывала загрузку коллекции.
type HTTPAlbumSource struct {
	client *http.Client
}

func NewHTTPAlbumSource() *HTTPAlbumSource {
	return &HTTPAlbumSource{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPAlbumSource) Fetch(ctx context.Context, albumRef string) ([]AlbumItem, error) {
	if _, err := url.ParseRequestURI(albumRef); err != nil {
		return nil, fmt.Errorf("bad album ref: %w", err)
	}

	items, err := backoff.Retry(ctx, func() ([]AlbumItem, error) {
		return s.fetchOnce(ctx, albumRef)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		return nil, fmt.Errorf("fetch album %s: %w", albumRef, err)
	}
	return items, nil
}

func (s *HTTPAlbumSource) fetchOnce(ctx context.Context, albumRef string) ([]AlbumItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, albumRef, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("album responded %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var items []AlbumItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode album: %w", err))
	}
	return items, nil
}
