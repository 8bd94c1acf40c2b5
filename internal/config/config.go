// Package config assembles the service's runtime configuration once, at
// startup, from environment variables into a single explicit struct — the
// gomind core foundation's Config/DefaultConfig pattern, generalized here to
// the sections this service needs instead of discovery/registry settings.
// Nothing in this package reads the environment lazily after Load returns,
// so tests can construct isolated configurations directly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully resolved, immutable-after-construction configuration
// for one process.
type Config struct {
	HTTP        HTTPConfig
	RateLimit   RateLimitConfig
	Queue       QueueConfig
	Idempotency IdempotencyConfig
	Images      ImagesConfig
	Marketplace MarketplaceConfig
	LLM         LLMConfig
	Keys        KeysConfig
	MetricsKey  string
	OpenAPIKey  string
}

type HTTPConfig struct {
	Port               int
	RequestMaxBytes    int64
	OutboundTimeout    time.Duration
	OutboundConnect    time.Duration
}

type RateLimitConfig struct {
	PerSecond float64
	Capacity  float64
}

type QueueConfig struct {
	Capacity int
}

type IdempotencyConfig struct {
	TTL      time.Duration
	RedisURL string
}

type ImagesConfig struct {
	MaxImages int
	Allowlist []string
}

type MarketplaceConfig struct {
	Env            string
	AppID          string
	CertID         string
	RefreshToken   string
	CategoryTreeID string
	EnableNetwork  bool
	// BaseURLOverride replaces the computed sandbox/prod root when set,
	// so tests can point the client at an httptest server.
	BaseURLOverride string
}

type LLMConfig struct {
	GatewayURL   string
	APIKey       string
	FunctionName string
	Model        string
}

type KeysConfig struct {
	// Raw is "org:key,org:key,..." as presented via DEMO_API_KEYS.
	Raw string
}

// Load reads the process environment into a Config. Every default matches
// the value spec.md §6 documents for the corresponding variable.
func Load() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:            envInt("PORT", 8000),
			RequestMaxBytes: int64(envInt("REQUEST_MAX_BYTES", 256*1024)),
			OutboundTimeout: time.Duration(envInt("HTTP_TIMEOUT_SECS", 15)) * time.Second,
			OutboundConnect: time.Duration(envInt("HTTP_CONNECT_TIMEOUT_SECS", 5)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			PerSecond: envFloatPositive("RATE_LIMIT_PER_SEC", 5),
			Capacity:  envFloatAtLeastOne("RATE_LIMIT_CAPACITY", 10),
		},
		Queue: QueueConfig{
			Capacity: envIntPositive("QUEUE_CAPACITY", 64),
		},
		Idempotency: IdempotencyConfig{
			TTL:      time.Duration(envInt("IDEMPOTENCY_TTL_SECS", 3600)) * time.Second,
			RedisURL: os.Getenv("REDIS_URL"),
		},
		Images: ImagesConfig{
			MaxImages: envIntPositive("MAX_IMAGES", 6),
			Allowlist: splitAllowlist(os.Getenv("IMAGE_DOMAIN_ALLOWLIST")),
		},
		Marketplace: MarketplaceConfig{
			Env:            envOr("EBAY_ENV", "SANDBOX"),
			AppID:          os.Getenv("EBAY_APP_ID_PRODUCTION"),
			CertID:         os.Getenv("EBAY_CERT_ID_PRODUCTION"),
			RefreshToken:   os.Getenv("EBAY_REFRESH_TOKEN"),
			CategoryTreeID: envOr("EBAY_CATEGORY_TREE_ID", "0"),
			EnableNetwork:  envBool("EBAY_ENABLE_NETWORK"),
		},
		LLM: LLMConfig{
			GatewayURL:   envOr("TENSORZERO_GATEWAY_URL", "http://localhost:3000"),
			APIKey:       os.Getenv("TENSORZERO_API_KEY"),
			FunctionName: os.Getenv("TENSORZERO_FUNCTION"),
			Model:        os.Getenv("TENSORZERO_MODEL"),
		},
		Keys: KeysConfig{
			Raw: envOr("DEMO_API_KEYS", "demo-org:demo-key"),
		},
		MetricsKey: os.Getenv("METRICS_KEY"),
		OpenAPIKey: os.Getenv("OPENAPI_KEY"),
	}
}

// EbayRoot returns the eBay REST root for the configured environment.
func (m MarketplaceConfig) EbayRoot() string {
	if m.BaseURLOverride != "" {
		return m.BaseURLOverride
	}
	if strings.EqualFold(m.Env, "PROD") {
		return "https://api.ebay.com"
	}
	return "https://api.sandbox.ebay.com"
}

func (m MarketplaceConfig) OAuthTokenURL() string {
	return m.EbayRoot() + "/identity/v1/oauth2/token"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes"
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envIntPositive(key string, fallback int) int {
	v := envInt(key, fallback)
	if v <= 0 {
		return fallback
	}
	return v
}

func envFloatPositive(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envFloatAtLeastOne(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func splitAllowlist(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
