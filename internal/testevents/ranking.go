package testevents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/kegel/pkg/logger"
)

// getJSON fetches path and decodes a 200 response into v.
func getJSON(ctx context.Context, client *HTTPClient, url string, v any) error {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// getLedgerConfig reads the pool address, decimals and cooldown.
func getLedgerConfig(ctx context.Context, config *Config) (LedgerConfig, error) {
	var cfg LedgerConfig
	err := getJSON(ctx, newHTTPClient(config.Timeout), config.BaseURL+"/config", &cfg)
	return cfg, err
}

// getLeaderboard retrieves the top N rows of a scalar board.
func getLeaderboard(ctx context.Context, config *Config, board string, stats *Stats) ([]Entry, error) {
	url := fmt.Sprintf("%s/leaderboards/%s?limit=%d", config.BaseURL, board, config.TopN)

	var rows []Entry
	if err := getJSON(ctx, newHTTPClient(config.Timeout), url, &rows); err != nil {
		return nil, err
	}
	stats.LeaderboardEntries += len(rows)
	logger.Get().Info(ctx, "retrieved leaderboard", logger.String("board", board), logger.Int("entries", len(rows)))
	return rows, nil
}
