package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stream-quality/internal/app"
	"stream-quality/internal/checkers"
	"stream-quality/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/example.yaml", "config file path")
	once := flag.Bool("once", false, "run checks and anomaly detection once, then exit")
	validate := flag.Bool("validate", false, "load the config, build every check, then exit")
	flag.Parse()

	if *validate {
		if err := validateConfig(*configPath); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
		fmt.Println("config ok")
		return
	}
	if *once {
		_ = os.Setenv("SCHEDULE_RUN_ONCE", "true")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, *configPath); err != nil {
		log.Fatalf("run app: %v", err)
	}
}

func validateConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	_, err = checkers.Build(cfg.Checks, cfg.Anomaly.Policy())
	return err
}
