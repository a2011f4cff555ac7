package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"carezone/common/database"
	"carezone/common/logger"
	"carezone/internal/config"
	"carezone/internal/repository"

	"go.uber.org/zap"
)

// 用法：carezone-migrate [migration_file.sql ...]
// 不带参数时执行内置迁移
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, "console", "carezone-migrate")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	migrations, err := loadMigrations(os.Args[1:])
	if err != nil {
		log.Fatal("Failed to load migrations", zap.Error(err))
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := repository.Migrate(ctx, db, migrations); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	for _, m := range migrations {
		log.Info("Migration applied", zap.String("name", m.Name), zap.Int("statements", len(m.Statements)))
	}
}

func loadMigrations(files []string) ([]repository.Migration, error) {
	if len(files) == 0 {
		return repository.LoadMigrations()
	}
	out := make([]repository.Migration, 0, len(files))
	for _, name := range files {
		content, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		out = append(out, repository.Migration{Name: name, Statements: repository.SplitStatements(string(content))})
	}
	return out, nil
}
