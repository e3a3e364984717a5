package main

import (
	"flag"
	"fmt"
	"os"

	"FuelPhases/internal/di"
	"FuelPhases/pkg/config"
	applogger "FuelPhases/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	l.Info("starting fuelphases",
		applogger.String("addr", fmt.Sprintf(":%d", cfg.Server.Port)),
		applogger.Bool("clickhouse", cfg.ClickHouse.Enabled),
		applogger.Bool("redis", cfg.Redis.Enabled),
		applogger.Bool("kafka", cfg.Kafka.Enabled),
		applogger.Strings("fuels", cfg.Precompute.Fuels),
	)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		l.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		l.Error("app stopped with error", applogger.Error(err))
		os.Exit(1)
	}
}
