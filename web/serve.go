package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"whispers.town/algolia"
	"whispers.town/assemblyai"
	"whispers.town/config"
	"whispers.town/llm"
	"whispers.town/search"
	"whispers.town/supabase"
)

func newLanguageModel(ctx context.Context, cfg *config.Config) (llm.LanguageModel, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("missing OPENAI_API_KEY")
		}
		return llm.NewOpenAILanguageModel(cfg.OpenAIAPIKey), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY")
		}
		return llm.NewGeminiLanguageModel(ctx, cfg.GeminiAPIKey)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}

func Serve(ctx context.Context, cfg *config.Config) error {
	logger := log.Default()

	model, err := newLanguageModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create language model: %w", err)
	}

	index := algolia.NewClient(cfg.AlgoliaAppID, cfg.AlgoliaAPIKey, cfg.AlgoliaSearchKey, cfg.AlgoliaIndex)
	speech := assemblyai.NewClient(cfg.AssemblyAIAPIKey, logger.With().WithPrefix("hear"))
	db := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey)

	handler := &Handler{
		Index:        index,
		Model:        model,
		Speech:       speech,
		DB:           db,
		Orchestrator: search.NewOrchestrator(model, index, logger.With().WithPrefix("seek")),
		FrontendURL:  cfg.FrontendURL,
		Logger:       logger.With().WithPrefix("http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:8080",
			"http://localhost:3000",
			"http://127.0.0.1:8080",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	handler.Routes(r)

	log.Info("http", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", cfg.Port), r)
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the backend HTTP server",
	Long:  `This command starts the HTTP server that the journaling frontend talks to.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Port = port
		}
		if err := Serve(cmd.Context(), cfg); err != nil {
			log.Fatal("Failed to start server", "error", err)
		}
	},
}

func init() {
	ServeCmd.Flags().IntP("port", "p", 0, "Port to run the HTTP server on")
}
