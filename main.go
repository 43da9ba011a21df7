// Command agroai asks the configured assistant backend a single question and prints
// the answer, without touching the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RichardoC/agroai/internal/config"
	"github.com/RichardoC/agroai/internal/llm"
	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("AGROAI_CONFIG"), "path to config.yaml")
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

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		prompt = "What is the current ocean temperature in the Pacific?"
	}

	model, err := llm.NewModel(llm.ModelConfig{
		Backend: cfg.Assistant.Backend,
		BaseURL: cfg.Assistant.BaseURL,
		Model:   cfg.Assistant.Model,
		Token:   cfg.Assistant.Token,
		Seed:    cfg.Assistant.Seed,
	})
	if err != nil {
		logger.Fatal("failed to initialize assistant", zap.Error(err))
	}

	completion, err := llms.GenerateFromSinglePrompt(context.Background(), model, prompt)
	if err != nil {
		logger.Fatal("failed to generate completion", zap.Error(err))
	}
	fmt.Println(completion)
}
