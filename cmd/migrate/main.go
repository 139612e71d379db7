package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm/logger"

	"github.com/yourusername/vocab-api/internal/config"
	"github.com/yourusername/vocab-api/pkg/database"
)

// Утилита управления схемой БД: up, down, force, version.
// Нужна, когда миграция упала и база осталась в состоянии dirty.
func main() {
	steps := flag.Int("steps", 1, "количество миграций для отката (down)")
	version := flag.Int("version", -1, "версия для force")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate [flags] up|down|force|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sourceURL := cfg.Database.MigrationsURL()

	switch flag.Arg(0) {
	case "up":
		err = database.MigrateDB(db, sourceURL)
	case "down":
		err = database.RollbackDB(db, sourceURL, *steps)
	case "force":
		if *version < 0 {
			log.Fatal("force requires -version")
		}
		err = database.ForceVersion(db, sourceURL, *version)
		if err == nil {
			log.Printf("Версия схемы принудительно установлена: %d", *version)
		}
	case "version":
		var current uint
		var dirty bool
		current, dirty, err = database.MigrationVersion(db, sourceURL)
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", current, dirty)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("Migration command %q failed: %v", flag.Arg(0), err)
	}
}
