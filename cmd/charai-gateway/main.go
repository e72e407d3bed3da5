/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command charai-gateway serves the character info proxy and the settings API.
package main

import (
	"context"
	"flag"
	"fmt"
	golog "log"

	"github.com/acronis/charai-gateway/internal/appinfo"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/service"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "Path to the YAML configuration file, empty to use defaults and env vars")
	flag.Parse()

	if err := runApp(*cfgPath); err != nil {
		golog.Fatal(err)
	}
}

func runApp(cfgPath string) error {
	cfg, err := loadAppConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	logger.Info("starting "+appinfo.Name, log.String("version", appinfo.Version()))

	a, err := newApp(context.Background(), cfg, logger, appOpts{})
	if err != nil {
		logger.Error("application initialization failed", log.Error(err))
		return err
	}
	a.MustRegisterMetrics()
	defer a.UnregisterMetrics()

	return service.New(logger, a.unit()).Run(context.Background())
}
