package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ark/config"
	"ark/internal/hub"
	"ark/internal/logger"
	"ark/internal/metrics"
	"ark/internal/rules"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat("hubd.yml"); err == nil {
		return "hubd.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), "hubd.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "hubd.yml"
}

func main() {
	configArg := ""
	if len(os.Args) > 1 {
		configArg = os.Args[1]
	}
	configPath := findConfigFile(configArg)

	cfg, err := config.LoadHubConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Hub.Logging.Enabled, cfg.Hub.Logging.Level, cfg.Hub.Logging.File, cfg.Hub.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("ark hub starting")
	logger.Infof("Config loaded from: %s", configPath)

	coll := metrics.New()

	var rulesEngine *rules.Engine
	if cfg.Hub.Rules.Enabled {
		re, stats, err := rules.Load(cfg.Hub.Rules.Path)
		if err != nil {
			logger.Errorf("Failed to load rules from %s: %v", cfg.Hub.Rules.Path, err)
			log.Fatalf("Failed to load rules: %v", err)
		}
		rulesEngine = re
		logger.Infof("rules loaded: loaded=%d skipped_invalid=%d files=%d", stats.Loaded, stats.SkippedInvalid, stats.TotalFiles)
	}

	var dirty *hub.DirtyIndex
	if cfg.Hub.DirtyIndex.Addr != "" {
		di, err := hub.NewDirtyIndex(hub.DirtyIndexConfig{
			Addr:         cfg.Hub.DirtyIndex.Addr,
			Password:     cfg.Hub.DirtyIndex.Password,
			DB:           cfg.Hub.DirtyIndex.DB,
			KeyPrefix:    cfg.Hub.DirtyIndex.KeyPrefix,
			BlockTimeout: cfg.Hub.DirtyIndex.BlockTimeout,
		})
		if err != nil {
			logger.Warnf("Dirty index disabled: failed to connect to %s: %v", cfg.Hub.DirtyIndex.Addr, err)
		} else {
			dirty = di
			defer dirty.Close()
			logger.Infof("dirty index connected: %s", cfg.Hub.DirtyIndex.Addr)
		}
	}

	h := hub.New(rulesEngine, dirty, coll)

	srv := &http.Server{
		Addr:    cfg.Hub.ListenAddr,
		Handler: h.Router(),
	}

	go func() {
		logger.Infof("ark hub listening on %s", cfg.Hub.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("hub server error: %v", err)
			log.Fatalf("hub server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Error during hub shutdown: %v", err)
	}

	logger.Infof("ark hub stopped")
}
