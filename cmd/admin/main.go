package main

import (
	"fmt"
	"os"
	"time"

	"clubhub/internal/config"
	"clubhub/internal/logger"
	"clubhub/internal/store"
	"clubhub/internal/users"
)

func main() {
	cfg, err := config.Load(os.Getenv("CLUBHUB_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Log)

	if cfg.StoreBackend != "postgres" {
		log.Error("admin commands need the postgres store", "store", cfg.StoreBackend)
		os.Exit(1)
	}
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "err", err.Error())
		os.Exit(1)
	}

	cli := commandLine{
		migrate: func(command string) error { return store.Migrate(db, command) },
		admins:  users.NewService(store.NewPostgres(db), time.Now),
		out:     os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			log.Error("admin command failed", "err", err.Error())
		}
		os.Exit(1)
	}
}
