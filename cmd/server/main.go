package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"autoorder/internal/config"
	"autoorder/internal/gateway"
	httpapi "autoorder/internal/http"
	"autoorder/internal/repository"
	"autoorder/internal/service"
	"autoorder/internal/worker"

	_ "autoorder/docs"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	store := repository.NewMemoryStore()
	catalog := repository.NewStaticCatalog(repository.DefaultProducts())
	gw := gateway.NewClient(cfg.GatewayBaseURL, cfg.ProjectSlug, cfg.APIKey, cfg.GatewayTimeout)

	ordersSvc := service.NewOrderService(catalog, store, gw)
	defer ordersSvc.Close()
	productsSvc := service.NewProductService(catalog)
	webhooksSvc := service.NewWebhookService(ordersSvc, cfg.WebhookSecret, cfg.ProjectSlug)

	pollCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	poller := worker.NewStatusPoller(store, ordersSvc, cfg.PollInterval, cfg.PollMaxAttempts)
	go poller.Run(pollCtx)

	srv := httpapi.NewServer(productsSvc, ordersSvc, webhooksSvc, cfg.AllowedOrigins)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		log.Printf("HTTP server listening on %s (project=%s)", httpServer.Addr, cfg.ProjectSlug)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopPoller()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
