// Package admission is the HTTP entry gate: API key authentication followed
// by a per-org token-bucket rate limiter, applied as middleware ahead of
// every pipeline-driving route. Grounded on the original security module.
package admission

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/pkg/model"
)

// AuthContext identifies the org and api key behind an authenticated
// request, threaded through the pipeline for tenant config lookups.
type AuthContext struct {
	OrgID    string
	APIKeyID string
}

type contextKey struct{}

// WithAuthContext attaches ctx to a request context for downstream handlers.
func WithAuthContext(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, auth)
}

// FromContext retrieves the AuthContext a previous middleware attached, if
// any.
func FromContext(ctx context.Context) (AuthContext, bool) {
	auth, ok := ctx.Value(contextKey{}).(AuthContext)
	return auth, ok
}

type orgRecord struct {
	orgID    string
	apiKeyID string
}

// KeyTable maps presented API key secrets to their org identity.
type KeyTable struct {
	records map[string]orgRecord
}

// LoadKeyTable parses the "org:key,org:key,..." shape DEMO_API_KEYS carries,
// falling back to a single demo credential when parsing yields nothing
// usable.
func LoadKeyTable(raw string) *KeyTable {
	records := make(map[string]orgRecord)
	for idx, token := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 {
			continue
		}
		org := strings.TrimSpace(parts[0])
		secret := strings.TrimSpace(parts[1])
		if org == "" || secret == "" {
			continue
		}
		records[secret] = orgRecord{orgID: org, apiKeyID: "key-" + pad2(idx+1)}
	}

	if len(records) == 0 {
		records["demo-key"] = orgRecord{orgID: "demo-org", apiKeyID: "key-01"}
	}

	return &KeyTable{records: records}
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func (t *KeyTable) authenticate(presented string) (AuthContext, bool) {
	record, ok := t.records[presented]
	if !ok {
		return AuthContext{}, false
	}
	return AuthContext{OrgID: record.orgID, APIKeyID: record.apiKeyID}, true
}

// bucketState is one org's token-bucket accounting.
type bucketState struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter is a per-key token bucket, refilled continuously at ratePerSec
// up to capacity.
type RateLimiter struct {
	ratePerSec float64
	capacity   float64
	mu         sync.Mutex
	buckets    map[string]*bucketState
}

// NewRateLimiter builds a limiter from cfg.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		ratePerSec: cfg.PerSecond,
		capacity:   cfg.Capacity,
		buckets:    make(map[string]*bucketState),
	}
}

// RatePermit is attached to a response on success, carrying the bucket
// fields needed to render rate-limit headers.
type RatePermit struct {
	Capacity float64
	Tokens   float64
	Rate     float64
}

// RateExceeded is returned when the bucket has no tokens available.
type RateExceeded struct {
	RetryAfter float64
	Capacity   float64
	Tokens     float64
	Rate       float64
}

// Consume attempts to take one token for key, refilling first.
func (l *RateLimiter) Consume(key string) (RatePermit, *RateExceeded) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	state, ok := l.buckets[key]
	if !ok {
		state = &bucketState{tokens: l.capacity, lastRefill: now}
		l.buckets[key] = state
	}

	elapsed := now.Sub(state.lastRefill).Seconds()
	if elapsed > 0 {
		state.tokens = math.Min(state.tokens+elapsed*l.ratePerSec, l.capacity)
		state.lastRefill = now
	}

	if state.tokens >= 1.0 {
		state.tokens -= 1.0
		return RatePermit{Capacity: l.capacity, Tokens: state.tokens, Rate: l.ratePerSec}, nil
	}

	deficit := 1.0 - state.tokens
	retryAfter := deficit / l.ratePerSec
	if retryAfter < 0 {
		retryAfter = 0
	}
	return RatePermit{}, &RateExceeded{RetryAfter: retryAfter, Capacity: l.capacity, Tokens: state.tokens, Rate: l.ratePerSec}
}

func (p RatePermit) applyHeaders(h http.Header) {
	remaining := uint64(math.Max(math.Floor(p.Tokens), 0))
	reset := uint64(math.Max(math.Ceil((p.Capacity-p.Tokens)/p.Rate), 0))
	h.Set("X-RateLimit-Limit", strconv.FormatUint(uint64(p.Capacity), 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatUint(remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatUint(reset, 10))
}

func (e *RateExceeded) applyHeaders(h http.Header) {
	retry := uint64(math.Max(math.Ceil(e.RetryAfter), 0))
	h.Set("Retry-After", strconv.FormatUint(retry, 10))
	h.Set("X-RateLimit-Limit", strconv.FormatUint(uint64(e.Capacity), 10))
	h.Set("X-RateLimit-Remaining", "0")
	reset := uint64(math.Max(math.Ceil((e.Capacity-e.Tokens)/e.Rate), 0))
	h.Set("X-RateLimit-Reset", strconv.FormatUint(reset, 10))
}

// Middleware enforces API key auth followed by per-org rate limiting ahead
// of next.
func Middleware(keys *KeyTable, limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := extractAPIKey(r.Header)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing_api_key", "Provide X-Hermes-Key or Bearer token")
				return
			}

			auth, ok := keys.authenticate(presented)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid_api_key", "Key not recognized")
				return
			}

			permit, exceeded := limiter.Consume(auth.OrgID)
			if exceeded != nil {
				exceeded.applyHeaders(w.Header())
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				return
			}

			permit.applyHeaders(w.Header())
			r = r.WithContext(WithAuthContext(r.Context(), auth))
			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(header http.Header) (string, bool) {
	if raw := header.Get("Authorization"); len(raw) >= 7 && strings.EqualFold(raw[:6], "bearer") {
		if v := strings.TrimSpace(raw[6:]); v != "" {
			return v, true
		}
	}
	raw := strings.TrimSpace(header.Get("X-Hermes-Key"))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ApiError{Error: code, Detail: detail})
}
