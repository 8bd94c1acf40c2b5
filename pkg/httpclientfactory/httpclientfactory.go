// Package httpclientfactory produces the single outbound HTTP client shared
// by every external collaborator (LLM gateway, marketplace REST API,
// tenant-config store), configured once at startup with read and connect
// timeouts, mirroring the teacher's preference for one immutable client
// built by a factory function over ad-hoc http.Client{} literals scattered
// through call sites.
package httpclientfactory

import (
	"net"
	"net/http"
	"time"

	"github.com/itsneelabh/hermes/internal/config"
)

// New builds an *http.Client configured from cfg's outbound timeout
// settings.
func New(cfg config.HTTPConfig) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.OutboundConnect,
		}).DialContext,
	}
	return &http.Client{
		Timeout:   cfg.OutboundTimeout,
		Transport: transport,
	}
}

// NewWithTimeouts builds a client directly from explicit durations, used in
// tests that don't want to construct a full config.Config.
func NewWithTimeouts(readTimeout, connectTimeout time.Duration) *http.Client {
	return New(config.HTTPConfig{OutboundTimeout: readTimeout, OutboundConnect: connectTimeout})
}
