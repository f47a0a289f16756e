package config

import "github.com/spf13/viper"

// SetDefaults registers every configuration key the app reads. Values can be
// overridden via $HOME/.storyweaver/storyweaver.yaml or the environment.
func SetDefaults() {
	viper.SetDefault("gemini.text_model", "gemini-2.5-flash")
	viper.SetDefault("gemini.image_model", "imagen-3.0-generate-002")
	viper.SetDefault("gemini.speech_model", "gemini-2.5-flash-preview-tts")
	viper.SetDefault("gemini.voice", "Kore")

	viper.SetDefault("story.min_pages", 4)
	viper.SetDefault("story.max_pages", 6)

	// Pace at which prefetch requests are issued, and how many may start
	// immediately before the limiter kicks in.
	viper.SetDefault("prefetch.interval", "300ms")
	viper.SetDefault("prefetch.burst", 2)
}
