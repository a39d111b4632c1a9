package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mediagrab/internal/app"
	"mediagrab/internal/config"
	"mediagrab/internal/version"
)

func main() {
	// .env と環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// SIGINT / SIGTERM で停止
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting mediagrab v%s on port %s", version.Version, cfg.Port)
	if err := a.Serve(ctx); err != nil {
		log.Fatal(err)
	}
}
