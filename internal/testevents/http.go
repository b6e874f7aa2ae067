package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kegel/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body on behalf of caller.
func (c *HTTPClient) Post(ctx context.Context, url, caller string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CallerHeader, caller)
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// forEach runs fn for every wallet on the given number of goroutines.
func forEach(ctx context.Context, workers int, wallets []Wallet, fn func(i int, w Wallet)) {
	workers = max(workers, 1)
	ch := make(chan int, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ch {
				if ctx.Err() != nil {
					continue
				}
				fn(i, wallets[i])
			}
		}()
	}
	go func() {
		defer close(ch)
		for i := range wallets {
			select {
			case <-ctx.Done():
				return
			case ch <- i:
			}
		}
	}()
	wg.Wait()
}

// approveWallets lets the pool spend each wallet's whole genesis balance.
func approveWallets(ctx context.Context, config *Config, pool string, decimals uint8, wallets []Wallet, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/token/approve"
	allowance := GenesisAmount(decimals)

	var approved, failed int64
	forEach(ctx, config.Workers, wallets, func(_ int, w Wallet) {
		body := map[string]string{"spender": pool, "amount": allowance}
		resp, err := client.Post(ctx, url, w.Address, body)
		if err != nil {
			atomic.AddInt64(&failed, 1)
			return
		}
		_, _ = readResponseBody(resp)
		if resp.StatusCode != StatusOK {
			atomic.AddInt64(&failed, 1)
			return
		}
		atomic.AddInt64(&approved, 1)
	})

	stats.Approvals = int(approved)
	logger.Get().Info(ctx, "approvals completed", logger.Int("approved", stats.Approvals), logger.Int("failed", int(failed)))
	if failed > 0 {
		return fmt.Errorf("%d approvals failed", failed)
	}
	return nil
}

// submitCheckIns checks every wallet in once and reports which were accepted.
func submitCheckIns(ctx context.Context, config *Config, wallets []Wallet, stats *Stats) []bool {
	log := logger.Get()
	log.Info(ctx, "submitting check-ins", logger.Int("wallets", len(wallets)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/checkin"
	accepted := make([]bool, len(wallets))

	var submitted, ok, rejected int64
	var lastReport atomic.Int64
	forEach(ctx, config.Workers, wallets, func(i int, w Wallet) {
		code, status, err := postCheckIn(ctx, client, url, w)
		atomic.AddInt64(&submitted, 1)
		switch {
		case err != nil:
			atomic.AddInt64(&rejected, 1)
			log.Warn(ctx, "check-in failed", logger.String("wallet", w.Address), logger.Error(err))
		case status == StatusOK:
			accepted[i] = true
			atomic.AddInt64(&ok, 1)
		default:
			atomic.AddInt64(&rejected, 1)
			if config.Verbose {
				log.Info(ctx, "check-in rejected", logger.String("wallet", w.Address), logger.String("code", code))
			}
		}

		now := time.Now().Unix()
		if last := lastReport.Load(); now > last && lastReport.CompareAndSwap(last, now) {
			log.Info(ctx, "check-in progress",
				logger.Int("submitted", int(atomic.LoadInt64(&submitted))),
				logger.Int("total", len(wallets)),
				logger.Int("accepted", int(atomic.LoadInt64(&ok))),
				logger.Int("rejected", int(atomic.LoadInt64(&rejected))))
		}
	})

	stats.CheckInsSubmitted = int(submitted)
	stats.CheckInsAccepted = int(ok)
	stats.CheckInsRejected = int(rejected)
	log.Info(ctx, "check-in submission completed",
		logger.Int("accepted", stats.CheckInsAccepted),
		logger.Int("rejected", stats.CheckInsRejected))
	return accepted
}

// probeCooldown re-submits for the first Probes accepted wallets; every one
// must be refused with 429.
func probeCooldown(ctx context.Context, config *Config, wallets []Wallet, accepted []bool, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/checkin"

	for i, w := range wallets {
		if stats.CooldownProbes >= config.Probes {
			break
		}
		if !accepted[i] {
			continue
		}
		stats.CooldownProbes++
		code, status, err := postCheckIn(ctx, client, url, w)
		if err != nil {
			return err
		}
		if status != StatusTooManyRequests || code != "too_soon" {
			return fmt.Errorf("wallet %s re-checked in with status %d (%s)", w.Address, status, code)
		}
		stats.CooldownRejected++
	}
	logger.Get().Info(ctx, "cooldown probes completed", logger.Int("probes", stats.CooldownProbes))
	return nil
}

func postCheckIn(ctx context.Context, client *HTTPClient, url string, w Wallet) (code string, status int, err error) {
	resp, err := client.Post(ctx, url, w.Address, map[string]string{"donation": w.Donation})
	if err != nil {
		return "", 0, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "", resp.StatusCode, err
	}
	if resp.StatusCode != StatusOK {
		var e errorResponse
		_ = json.Unmarshal(body, &e)
		code = e.Code
	}
	return code, resp.StatusCode, nil
}
