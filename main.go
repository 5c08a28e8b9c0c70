package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"whispers.town/config"
	"whispers.town/llm"
	"whispers.town/supabase"
	"whispers.town/web"
)

var rootCmd = &cobra.Command{
	Use:   "whispers",
	Short: "Whispers is the backend for the voice journaling app",
	Long:  `Whispers relays journaling requests to the search index, the language model, and the transcription service.`,
}

func init() {
	cobra.OnInitialize(config.Init)

	rootCmd.AddCommand(web.ServeCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(usageCmd)

	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().String("assemblyai-api-key", "", "AssemblyAI API key")
	rootCmd.PersistentFlags().String("algolia-app-id", "", "Algolia application ID")
	rootCmd.PersistentFlags().String("algolia-api-key", "", "Algolia write API key")
	rootCmd.PersistentFlags().String("supabase-url", "", "Supabase project URL")
	rootCmd.PersistentFlags().String("supabase-key", "", "Supabase service role key")

	viper.BindPFlag("gemini_api_key", rootCmd.PersistentFlags().Lookup("gemini-api-key"))
	viper.BindPFlag("openai_api_key", rootCmd.PersistentFlags().Lookup("openai-api-key"))
	viper.BindPFlag("assemblyai_api_key", rootCmd.PersistentFlags().Lookup("assemblyai-api-key"))
	viper.BindPFlag("algolia_app_id", rootCmd.PersistentFlags().Lookup("algolia-app-id"))
	viper.BindPFlag("algolia_api_key", rootCmd.PersistentFlags().Lookup("algolia-api-key"))
	viper.BindPFlag("supabase_url", rootCmd.PersistentFlags().Lookup("supabase-url"))
	viper.BindPFlag("supabase_key", rootCmd.PersistentFlags().Lookup("supabase-key"))
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [text]",
	Short: "Generate a title, summary, and tags for one journal entry",
	Long:  `Reads entry text from the argument or stdin and prints the generated front matter.`,
	Run:   runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	var text string
	if len(args) > 0 {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal("read stdin", "error", err.Error())
		}
		text = string(data)
	}

	if text == "" {
		log.Fatal("no entry text given")
	}

	if cfg.GeminiAPIKey == "" {
		log.Fatal("missing GEMINI_API_KEY or --gemini-api-key=")
	}

	model, err := llm.NewGeminiLanguageModel(cmd.Context(), cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal("create language model", "error", err.Error())
	}
	defer model.Close()

	card, err := llm.Summarize(cmd.Context(), model, text)
	if err != nil {
		log.Fatal("summarize", "error", err.Error())
	}

	fmt.Printf("Title:   %s\n", card.Title)
	fmt.Printf("Summary: %s\n", card.Summary)
	fmt.Printf("Tags:    %v\n", card.Tags)
}

var usageCmd = &cobra.Command{
	Use:   "usage <access-token>",
	Short: "Show usage statistics for a signed-in user",
	Long:  `Resolves the access token, counts the user's sessions and journal entries, and prints them in a table.`,
	Args:  cobra.ExactArgs(1),
	Run:   runUsage,
}

func runUsage(cmd *cobra.Command, args []string) {
	cfg := config.Load()
	ctx := cmd.Context()

	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		log.Fatal("missing SUPABASE_URL / SUPABASE_KEY")
	}

	db := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey)

	user, err := db.GetUser(ctx, args[0])
	if err != nil {
		log.Fatal("resolve access token", "error", err.Error())
	}

	filter := map[string]string{"user_id": user.ID}
	sessions, err := db.Count(ctx, "sessions", filter)
	if err != nil {
		log.Fatal("count sessions", "error", err.Error())
	}
	entries, err := db.Count(ctx, "journal_entries", filter)
	if err != nil {
		log.Fatal("count entries", "error", err.Error())
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Email", "Created At", "Sessions", "Entries"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.Append([]string{
		user.Email,
		user.CreatedAt,
		fmt.Sprintf("%d", sessions),
		fmt.Sprintf("%d", entries),
	})
	table.Render()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
