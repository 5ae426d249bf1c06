package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"eyeluxe/internal/app"
	"eyeluxe/internal/config"
	"eyeluxe/internal/logging"

	_ "eyeluxe/docs"
)

var conffile = flag.String("c", "eyeluxe.yml", "config yaml file")

// @title Eyeluxe back-office API
// @version 1.0
// @description Products, rentals, billing, expenses and reports of the Eyeluxe shop.
// @BasePath /api
func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	restore, err := logging.Install(cfg.Logger)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer restore()

	application := app.NewApplication(cfg)
	if err := application.Init(); err != nil {
		zap.S().Fatalf("startup failed: %v", err)
	}
	defer application.Release()

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           application.Server().Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.S().Infof("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zap.S().Errorf("shutdown error: %v", err)
	}
}
