package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every credential and endpoint the backend needs. It is read
// once at startup from config.yaml, environment variables, or flags bound
// through viper.
type Config struct {
	AlgoliaAppID     string
	AlgoliaAPIKey    string
	AlgoliaSearchKey string
	AlgoliaIndex     string

	GeminiAPIKey string
	OpenAIAPIKey string
	LLMProvider  string

	AssemblyAIAPIKey string

	SupabaseURL string
	SupabaseKey string

	FrontendURL string
	Port        int
}

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("algolia_index_name", "whispers_logs")
	viper.SetDefault("llm_provider", "gemini")
	viper.SetDefault("frontend_url", "http://localhost:8080")
	viper.SetDefault("port", 8000)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}
}

func Load() *Config {
	return &Config{
		AlgoliaAppID:     viper.GetString("algolia_app_id"),
		AlgoliaAPIKey:    viper.GetString("algolia_api_key"),
		AlgoliaSearchKey: viper.GetString("algolia_search_key"),
		AlgoliaIndex:     viper.GetString("algolia_index_name"),
		GeminiAPIKey:     viper.GetString("gemini_api_key"),
		OpenAIAPIKey:     viper.GetString("openai_api_key"),
		LLMProvider:      viper.GetString("llm_provider"),
		AssemblyAIAPIKey: viper.GetString("assemblyai_api_key"),
		SupabaseURL:      viper.GetString("supabase_url"),
		SupabaseKey:      viper.GetString("supabase_key"),
		FrontendURL:      viper.GetString("frontend_url"),
		Port:             viper.GetInt("port"),
	}
}
