package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Agrid-Dev/hpelec/internal/dataset"
)

const DefaultTemperatureURL = "https://besciences.blob.core.windows.net/datasets/bldg_el/pumas/{year}/temps/temps_pumas_{state}_{year}.csv"

// HTTPTemperatureSource fetches per-state temperature tables from the
// remote dataset store.
type HTTPTemperatureSource struct {
	Client      *http.Client
	URLTemplate string // {year} and {state} are substituted
	Retries     int
	Backoff     time.Duration
	Log         *slog.Logger
}

func NewHTTPTemperatureSource(client *http.Client, urlTemplate string) *HTTPTemperatureSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if urlTemplate == "" {
		urlTemplate = DefaultTemperatureURL
	}
	return &HTTPTemperatureSource{
		Client:      client,
		URLTemplate: urlTemplate,
		Backoff:     time.Second,
		Log:         slog.Default(),
	}
}

func (s *HTTPTemperatureSource) URL(state string, year int) string {
	r := strings.NewReplacer("{year}", strconv.Itoa(year), "{state}", state)
	return r.Replace(s.URLTemplate)
}

// retryableError marks failures worth another attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

func (s *HTTPTemperatureSource) Temperatures(ctx context.Context, state string, year int) (*dataset.Table, error) {
	url := s.URL(state, year)
	var lastErr error
	for attempt := 0; attempt <= s.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * s.Backoff
			s.Log.WarnContext(ctx, "retrying temperature fetch",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		t, err := s.fetch(ctx, url)
		if err == nil {
			return t, nil
		}
		lastErr = err
		var re retryableError
		if !errors.As(err, &re) {
			break
		}
	}
	return nil, lastErr
}

func (s *HTTPTemperatureSource) fetch(ctx context.Context, url string) (*dataset.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request %s: %w", url, err)
		}
		return nil, retryableError{fmt.Errorf("request %s: %w", url, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("request %s: unexpected status %s", url, resp.Status)
		if resp.StatusCode >= 500 {
			return nil, retryableError{err}
		}
		return nil, err
	}

	t, err := dataset.ReadCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return t, nil
}
