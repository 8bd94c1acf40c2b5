// Command hermes starts the listing-creation HTTP service: it loads
// configuration from the environment, wires the marketplace, LLM, and
// tenant-config collaborators into a pipeline orchestrator, starts the job
// queue's background worker, and serves the HTTP surface.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/internal/corelog"
	"github.com/itsneelabh/hermes/pkg/admission"
	"github.com/itsneelabh/hermes/pkg/httpapi"
	"github.com/itsneelabh/hermes/pkg/httpclientfactory"
	"github.com/itsneelabh/hermes/pkg/idempotency"
	"github.com/itsneelabh/hermes/pkg/jobqueue"
	"github.com/itsneelabh/hermes/pkg/llmclient"
	"github.com/itsneelabh/hermes/pkg/marketplace"
	"github.com/itsneelabh/hermes/pkg/pipeline"
	"github.com/itsneelabh/hermes/pkg/tenantconfig"
)

func main() {
	cfg := config.Load()
	logger := corelog.NewStructuredLogger(os.Stdout).WithComponent("hermes")

	httpClient := httpclientfactory.New(cfg.HTTP)
	marketplaceClient := marketplace.New(httpClient, cfg.Marketplace, logger)
	llmClient := llmclient.New(httpClient, cfg.LLM)

	var tenantClient *tenantconfig.Client
	if client, ok := tenantconfig.New(httpClient, os.Getenv("SUPABASE_URL"), os.Getenv("SUPABASE_SERVICE_ROLE_KEY")); ok {
		tenantClient = client
	}

	pl := pipeline.New(cfg, marketplaceClient, llmClient, tenantClient, logger)

	queue := jobqueue.New(cfg.Queue.Capacity, pl, logger)
	idemCache := idempotency.New(cfg.Idempotency.RedisURL, cfg.Idempotency.TTL, logger)
	keyTable := admission.LoadKeyTable(cfg.Keys.Raw)
	limiter := admission.NewRateLimiter(cfg.RateLimit)

	openapiJSON, err := httpapi.LoadOpenAPIJSON()
	if err != nil {
		logger.Warn("openapi_document_load_failed", map[string]interface{}{"error": err.Error()})
	}

	server := httpapi.New(cfg, pl, queue, idemCache, keyTable, limiter, logger, openapiJSON)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.HTTP.OutboundTimeout,
		WriteTimeout: cfg.HTTP.OutboundTimeout,
	}

	go func() {
		logger.Info("hermes_listening", map[string]interface{}{"port": cfg.HTTP.Port})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("hermes: server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	cancel()
}
