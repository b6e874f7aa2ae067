// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/internal/domain/ledger"
	"github.com/okian/kegel/pkg/logger"
)

// CallerHeader names the request header that carries the acting wallet.
const CallerHeader = "X-Wallet-Address"

// maxBodyBytes bounds request bodies; the largest is a claim with a proof.
const maxBodyBytes = 64 << 10

// Dependencies bundles everything the handlers need. Each handler only sees
// the slice it uses.
type Dependencies interface {
	CheckInDependencies
	ClaimDependencies
	AdminDependencies
	ReadDependencies
	LeaderboardDependencies
	EventsDependencies
	TokenDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	checkInHandler     *CheckInHandler
	claimHandler       *ClaimHandler
	adminHandler       *AdminHandler
	readHandler        *ReadHandler
	leaderboardHandler *LeaderboardHandler
	eventsHandler      *EventsHandler
	tokenHandler       *TokenHandler

	limiter *RateLimiter
}

// NewServer creates a new API server with all handlers. A nil limiter
// disables rate limiting.
func NewServer(deps Dependencies, limiter *RateLimiter) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		checkInHandler:     NewCheckInHandler(deps),
		claimHandler:       NewClaimHandler(deps),
		adminHandler:       NewAdminHandler(deps),
		readHandler:        NewReadHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLeaderboardLimit),
		eventsHandler:      NewEventsHandler(deps, maxEventsLimit),
		tokenHandler:       NewTokenHandler(deps),
		limiter:            limiter,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	write := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return MetricsMiddleware(RateLimit(s.limiter, endpoint, h), endpoint)
	}
	read := MetricsMiddleware

	mux.HandleFunc("GET /healthz", read(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", read(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /checkin", write(s.checkInHandler.HandleCheckIn, "checkin"))
	mux.HandleFunc("POST /claim", write(s.claimHandler.HandleClaim, "claim"))

	mux.HandleFunc("POST /admin/deposit", write(s.adminHandler.HandleDeposit, "admin_deposit"))
	mux.HandleFunc("PUT /admin/cooldown", write(s.adminHandler.HandleCooldown, "admin_cooldown"))
	mux.HandleFunc("PUT /admin/start-time", write(s.adminHandler.HandleStartTime, "admin_start_time"))
	mux.HandleFunc("PUT /admin/end-time", write(s.adminHandler.HandleEndTime, "admin_end_time"))
	mux.HandleFunc("PUT /admin/merkle-root", write(s.adminHandler.HandleMerkleRoot, "admin_merkle_root"))

	mux.HandleFunc("GET /config", read(s.readHandler.HandleConfig, "config"))
	mux.HandleFunc("GET /pool", read(s.readHandler.HandlePool, "pool"))
	mux.HandleFunc("GET /users/{address}", read(s.readHandler.HandleUser, "user"))
	mux.HandleFunc("GET /users/{address}/status", read(s.readHandler.HandleStatus, "user_status"))

	mux.HandleFunc("GET /leaderboards/{board}", read(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /events", read(s.eventsHandler.HandleListEvents, "events"))

	mux.HandleFunc("POST /token/approve", write(s.tokenHandler.HandleApprove, "token_approve"))
	mux.HandleFunc("GET /token/{address}", read(s.tokenHandler.HandleBalance, "token_balance"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeLedgerError reports a rejected mutation. Retryable rejections carry a
// Retry-After hint when retryAt is known.
func writeLedgerError(w http.ResponseWriter, r *http.Request, op string, err error, retryAfter uint64) {
	status := ledgerStatus(err)
	if ledger.Retryable(err) && retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatUint(retryAfter, 10))
	}
	if status == http.StatusInternalServerError {
		logger.Get().Named("api").Error(r.Context(), "mutation failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, ledger.Kind(err), Wrap(op, err))
}

// callerFrom reads the acting wallet from the request.
func callerFrom(r *http.Request) (common.Address, error) {
	raw := strings.TrimSpace(r.Header.Get(CallerHeader))
	if raw == "" {
		return common.Address{}, ErrMissingCaller
	}
	return parseAddress(raw)
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrBadAddress, raw)
	}
	return common.HexToAddress(raw), nil
}

// parseAmount reads a base-unit decimal string.
func parseAmount(raw string) (*uint256.Int, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadAmount)
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, raw)
	}
	return v, nil
}

// decodeBody reads a JSON body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

// queryUint reads an optional unsigned query parameter.
func queryUint(r *http.Request, key string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, key)
	}
	return v, nil
}
