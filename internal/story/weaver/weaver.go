package weaver

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storyweaver/internal/cli/scheme/colours"
	"storyweaver/internal/domain/story/generator"
	"storyweaver/internal/story/audio"
	"storyweaver/internal/story/book"
	"storyweaver/internal/story/chat"
)

// Weaver main application structure
type Weaver struct {
	svc generator.Service
	out audio.Output
	ctx context.Context

	Cancel context.CancelFunc

	mu   sync.Mutex
	book *book.Book
}

func NewWeaver() *Weaver {
	ctx, cancel := context.WithCancel(context.Background())

	svc, err := newService(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create content service")
	}

	return &Weaver{
		svc:    svc,
		out:    audio.NewSpeakerOutput(),
		ctx:    ctx,
		Cancel: cancel,
	}
}

// newService picks the Gemini gateway when an API key is configured and
// falls back to the offline mock otherwise, so the app always starts.
func newService(ctx context.Context) (generator.Service, error) {
	key := viper.GetString("gemini.api_key")
	if key == "" {
		colours.Warning.Println("⚠️  No GEMINI_API_KEY set - weaving offline sample stories")
		return generator.NewMock(), nil
	}

	return generator.NewGemini(ctx, generator.GeminiConfig{
		APIKey:      key,
		TextModel:   viper.GetString("gemini.text_model"),
		ImageModel:  viper.GetString("gemini.image_model"),
		SpeechModel: viper.GetString("gemini.speech_model"),
		Voice:       viper.GetString("gemini.voice"),
		MinPages:    viper.GetInt("story.min_pages"),
		MaxPages:    viper.GetInt("story.max_pages"),
	})
}

// Shutdown stops any live narration and cancels in-flight work. Used by the
// SIGINT handler.
func (w *Weaver) Shutdown() {
	w.Cancel()
	w.mu.Lock()
	b := w.book
	w.mu.Unlock()
	if b != nil {
		b.Reset()
	}
}

func (w *Weaver) setBook(b *book.Book) {
	w.mu.Lock()
	w.book = b
	w.mu.Unlock()
}

func (w *Weaver) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🌟 Welcome to StoryWeaver! 🌟")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • storyweaver tell [premise] - Weave and read a new story")
	fmt.Println("  • storyweaver idea           - Get a story premise suggestion")
	fmt.Println("  • storyweaver settings       - Show model and voice settings")
	fmt.Println()
	colours.Prompt.Println("✨ What story shall we weave tonight? ✨")
}

// Tell generates a story for the given premise, kicks off the asset prefetch
// pipeline and drops into the interactive reading loop.
func (w *Weaver) Tell(cmd *cobra.Command, args []string) {
	premise := strings.TrimSpace(strings.Join(args, " "))
	if premise == "" {
		premise = w.promptForPremise()
	}
	if premise == "" {
		colours.Warning.Println("👋 Maybe next time! Sweet dreams! 🌙")
		return
	}

	colours.Info.Printf("✨ Weaving a story about %q...\n", premise)
	pages, err := w.svc.GenerateStory(w.ctx, premise)
	if err != nil {
		colours.Error.Printf("❌ Could not weave that story: %v\n", err)
		colours.Info.Println("💡 Check your connection or API key and try again")
		return
	}
	colours.Success.Printf("📖 Your story is ready: %d pages!\n", len(pages))

	b := book.New(pages, w.out)
	w.setBook(b)
	defer func() {
		b.Reset()
		w.setBook(nil)
	}()

	// Illustrations and narration arrive in the background while the
	// reader is already on page one.
	prefetchCtx, cancelPrefetch := context.WithCancel(w.ctx)
	defer cancelPrefetch()
	prefetcher := book.NewPrefetcher(
		w.svc,
		b.Store(),
		viper.GetDuration("prefetch.interval"),
		viper.GetInt("prefetch.burst"),
		b.AudioReady,
	)
	go prefetcher.Run(prefetchCtx)

	companion := chat.NewCompanion(w.svc, pages)
	w.readLoop(b, companion)
}

// Idea prints a single premise suggestion.
func (w *Weaver) Idea(cmd *cobra.Command, args []string) {
	colours.Info.Println("🎲 Looking for inspiration...")
	idea, err := w.svc.GenerateStoryIdea(w.ctx)
	if err != nil {
		colours.Error.Printf("❌ Could not fetch an idea: %v\n", err)
		return
	}
	fmt.Println()
	colours.Prompt.Printf("💡 How about: %s\n", idea)
	colours.Info.Printf("   Try: storyweaver tell %q\n", idea)
}

// ShowSettings displays the active generation configuration.
func (w *Weaver) ShowSettings(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("⚙️ StoryWeaver Settings ⚙️")
	fmt.Println()
	colours.Prompt.Println("🧠 Models:")
	fmt.Printf("  • Story & chat: %s\n", viper.GetString("gemini.text_model"))
	fmt.Printf("  • Illustration: %s\n", viper.GetString("gemini.image_model"))
	fmt.Printf("  • Narration:    %s\n", viper.GetString("gemini.speech_model"))
	fmt.Println()
	colours.Prompt.Println("🎤 Narration voice:")
	fmt.Printf("  • %s (16-bit PCM, %d Hz, mono)\n", viper.GetString("gemini.voice"), audio.SampleRate)
	fmt.Println()
	colours.Prompt.Println("📚 Story length:")
	fmt.Printf("  • %d to %d pages\n", viper.GetInt("story.min_pages"), viper.GetInt("story.max_pages"))
}

func (w *Weaver) promptForPremise() string {
	colours.Prompt.Print("🌟 What should tonight's story be about? (Enter for a surprise): ")
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	premise := strings.TrimSpace(input)
	if premise != "" {
		return premise
	}

	idea, err := w.svc.GenerateStoryIdea(w.ctx)
	if err != nil {
		colours.Error.Printf("❌ Could not fetch an idea: %v\n", err)
		return ""
	}
	colours.Info.Printf("🎲 Surprise premise: %s\n", idea)
	return idea
}

// readLoop is the interactive storybook viewer: page navigation, the manual
// play/pause control and the question companion.
func (w *Weaver) readLoop(b *book.Book, companion *chat.Companion) {
	reader := bufio.NewReader(os.Stdin)
	w.renderPage(b)

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		colours.Prompt.Print("\n📖 [n]ext  [b]ack  [p]lay/pause  [r]efresh  [a]sk <question>  [q]uit: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input := strings.TrimSpace(line)

		switch {
		case input == "n" || input == "":
			if b.Next() {
				w.renderPage(b)
			} else {
				colours.Warning.Println("🌙 That was the last page. The End!")
			}
		case input == "b":
			if b.Previous() {
				w.renderPage(b)
			} else {
				colours.Info.Println("ℹ️  Already on the first page")
			}
		case input == "p":
			b.Toggle()
			colours.Info.Printf("🎵 Narration: %s\n", b.Status())
		case input == "r":
			w.renderPage(b)
		case strings.HasPrefix(input, "a "):
			w.askCompanion(companion, strings.TrimSpace(strings.TrimPrefix(input, "a ")))
		case input == "q" || input == "quit":
			colours.Warning.Println("👋 Goodbye! Sweet dreams! 🌙")
			return
		default:
			colours.Info.Println("ℹ️  Commands: n (next), b (back), p (play/pause), r (refresh), a <question>, q (quit)")
		}
	}
}

func (w *Weaver) renderPage(b *book.Book) {
	index := b.CurrentIndex()
	page := b.CurrentPage()

	fmt.Println()
	colours.Title.Printf("📄 Page %d of %d\n", index+1, b.Len())
	fmt.Println()
	colours.Narration.Println(page.Text)
	fmt.Println()

	switch {
	case page.ImageURL != "":
		colours.Success.Println("🖼️  Illustration ready")
	case page.ImageErr:
		colours.Error.Println("🖼️  Illustration unavailable for this page")
	case page.ImageLoading:
		colours.Info.Println("🖼️  Illustrating...")
	default:
		colours.Info.Println("🖼️  Illustration queued")
	}

	switch {
	case page.Audio != nil:
		colours.Success.Printf("🔊 Narration ready (%s)\n", b.Status())
	case page.AudioErr:
		colours.Error.Println("🔊 Narration unavailable for this page")
	case page.AudioLoading:
		colours.Info.Println("🔊 Narrating...")
	default:
		colours.Info.Println("🔊 Narration queued")
	}
}

func (w *Weaver) askCompanion(companion *chat.Companion, question string) {
	if question == "" {
		colours.Info.Println("ℹ️  Ask like this: a why did the dragon cry?")
		return
	}
	reply, err := companion.Ask(w.ctx, question)
	if err != nil {
		colours.Error.Printf("❌ The companion is napping: %v\n", err)
		colours.Info.Println("💡 You can ask again in a moment")
		return
	}
	colours.Companion.Printf("🧸 %s\n", reply)
}
