package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storyweaver/internal/cli/scheme/colours"
	"storyweaver/internal/config"
	"storyweaver/internal/story/weaver"
)

func main() {

	config.SetDefaults()

	app := weaver.NewWeaver()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Shutdown()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "storyweaver",
		Short: "🧵 Weave illustrated, narrated bedtime stories",
		Long: `
┌──────────────────────────────────────┐
│  🧵 Welcome to StoryWeaver! ✨      │
│  Illustrated, narrated storybooks    │
│  woven from your ideas 👶🌙         │
└──────────────────────────────────────┘

StoryWeaver turns a premise into a multi-page storybook, then illustrates
and narrates every page while you read. Perfect for bedtime! 🌙
		`,
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	tellCmd := &cobra.Command{
		Use:   "tell [premise...]",
		Short: "📖 Weave and read a new story",
		Long:  "Generate a story from your premise and read it page by page with narration",
		Run:   app.Tell,
	}

	ideaCmd := &cobra.Command{
		Use:   "idea",
		Short: "💡 Suggest a story premise",
		Long:  "Ask for a single imaginative premise to start from",
		Run:   app.Idea,
	}

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show generation settings",
		Long:  "Display the models, narration voice and story length in use",
		Run:   app.ShowSettings,
	}

	rootCmd.AddCommand(tellCmd, ideaCmd, settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// Configuration management with Viper
func init() {
	viper.SetConfigName("storyweaver")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.storyweaver")
	viper.AddConfigPath(".")

	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")

	viper.ReadInConfig()
}
