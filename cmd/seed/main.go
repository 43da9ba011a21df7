// Command seed fills the ocean data table with generated readings for one user,
// creating the user first when it does not exist.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/RichardoC/agroai/internal/auth"
	"github.com/RichardoC/agroai/internal/config"
	"github.com/RichardoC/agroai/internal/db"
	"github.com/RichardoC/agroai/internal/models"
	"github.com/RichardoC/agroai/internal/oceandata"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("AGROAI_CONFIG"), "path to config.yaml")
	username := flag.String("username", "demo", "owner of the generated records")
	password := flag.String("password", "demo123", "password used when the user has to be created")
	count := flag.Int("count", 200, "number of records to generate")
	seed := flag.Int64("seed", 0, "faker seed, 0 for a random one")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err), zap.String("dbPath", cfg.Database.Path))
	}
	defer database.Close()

	records, err := oceandata.NewRepository(database.Conn())
	if err != nil {
		logger.Fatal("failed to open ocean data repository", zap.Error(err))
	}

	ctx := context.Background()
	user, err := ensureUser(ctx, database, *username, *password)
	if err != nil {
		logger.Fatal("failed to prepare user", zap.String("username", *username), zap.Error(err))
	}

	faker := gofakeit.New(*seed)
	now := time.Now()
	for i := 0; i < *count; i++ {
		rec := oceandata.FakeRecord(faker, user.ID, now)
		if err := records.Create(ctx, &rec); err != nil {
			logger.Fatal("failed to insert record", zap.Int("index", i), zap.Error(err))
		}
	}
	logger.Info("seeded ocean data",
		zap.String("username", user.Username),
		zap.Int64("user_id", user.ID),
		zap.Int("records", *count))
}

func ensureUser(ctx context.Context, database *db.Database, username, password string) (*models.User, error) {
	user, err := database.GetUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	// Registration never touches the token secret.
	svc := auth.NewService(database, auth.Config{})
	return svc.Register(ctx, username, username+"@example.com", password, password)
}
