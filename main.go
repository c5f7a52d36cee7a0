package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/routes"
	"github.com/cppla/aiblog/utils"
)

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultPath, "path to the JSON or YAML config file")
	migrateOnly := pflag.Bool("migrate-only", false, "apply schema migrations and exit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger early
	log, err := utils.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		log.Fatal("database connection failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	if *migrateOnly {
		log.Info("migrations applied")
		return
	}

	cache := utils.NewCache(cfg, log.Named("cache"))
	r := routes.SetupRouter(cfg, db, cache, log)

	log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("driver", cfg.DBDriver), zap.Bool("cache", cfg.CacheEnabled))
	if err := utils.GraceServer(":"+cfg.AppPort, r, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}
