package generator

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"

	"storyweaver/internal/domain/story"
)

const storyPrompt = `Write a children's story based on this premise: %q.
Split it into %d to %d short pages. For every page provide the narration text
and a vivid illustration prompt describing the scene in a consistent,
warm storybook art style.`

const ideaPrompt = `Suggest one fun, imaginative premise for a children's
bedtime story, in a single sentence. Reply with the premise only.`

const chatSystemPrompt = `You are a friendly storybook companion for young
children. Answer questions about the story below in one or two simple,
encouraging sentences.

The story:
%s`

// GeminiConfig carries everything the Gemini-backed gateway needs; values
// come from viper in the app layer.
type GeminiConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	SpeechModel string
	Voice       string
	MinPages    int
	MaxPages    int
}

// Gemini implements Service on the Gemini API. Generated illustrations and
// narration are memoized in-process by content hash, so re-telling a story
// within a session does not re-bill the same prompts.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
	assets *cache.Cache
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		cfg:    cfg,
		assets: cache.New(30*time.Minute, 10*time.Minute),
	}, nil
}

func (g *Gemini) GenerateStory(ctx context.Context, premise string) ([]story.Page, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text":        {Type: genai.TypeString},
					"imagePrompt": {Type: genai.TypeString},
				},
				Required: []string{"text", "imagePrompt"},
			},
		},
	}

	prompt := fmt.Sprintf(storyPrompt, premise, g.cfg.MinPages, g.cfg.MaxPages)
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(prompt), config)
	if err != nil {
		return nil, &RequestError{Op: "generate story", Err: err}
	}

	pages, err := parseStoryJSON(resp.Text())
	if err != nil {
		return nil, &RequestError{Op: "generate story", Err: err}
	}
	return pages, nil
}

func (g *Gemini) GenerateStoryIdea(ctx context.Context) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(ideaPrompt), nil)
	if err != nil {
		return "", &RequestError{Op: "generate story idea", Err: err}
	}
	idea := strings.TrimSpace(resp.Text())
	if idea == "" {
		return "", &RequestError{Op: "generate story idea", Err: errors.New("empty response")}
	}
	return idea, nil
}

func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (string, error) {
	key := "image:" + contentKey(prompt)
	if cached, ok := g.assets.Get(key); ok {
		return cached.(string), nil
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.cfg.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return "", &RequestError{Op: "generate image", Err: err}
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return "", &RequestError{Op: "generate image", Err: errors.New("response contained no image")}
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	uri := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(img.ImageBytes))
	g.assets.SetDefault(key, uri)
	return uri, nil
}

func (g *Gemini) GenerateSpeech(ctx context.Context, text string) (string, error) {
	key := "speech:" + contentKey(g.cfg.Voice+"|"+text)
	if cached, ok := g.assets.Get(key); ok {
		return cached.(string), nil
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.cfg.Voice},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.SpeechModel, genai.Text(text), config)
	if err != nil {
		return "", &RequestError{Op: "generate speech", Err: err}
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				payload := base64.StdEncoding.EncodeToString(part.InlineData.Data)
				g.assets.SetDefault(key, payload)
				return payload, nil
			}
		}
	}
	return "", &RequestError{Op: "generate speech", Err: errors.New("response contained no audio")}
}

func (g *Gemini) StartChat(ctx context.Context, pages []story.Page) (ChatSession, error) {
	var sb strings.Builder
	for i, p := range pages {
		fmt.Fprintf(&sb, "Page %d: %s\n", i+1, p.Text)
	}

	system := fmt.Sprintf(chatSystemPrompt, sb.String())
	chat, err := g.client.Chats.Create(ctx, g.cfg.TextModel, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, &RequestError{Op: "start chat", Err: err}
	}
	return &geminiChat{chat: chat}, nil
}

type geminiChat struct {
	chat *genai.Chat
}

func (c *geminiChat) SendMessage(ctx context.Context, message string) (string, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", &RequestError{Op: "send chat message", Err: err}
	}
	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", &RequestError{Op: "send chat message", Err: errors.New("empty reply")}
	}
	return reply, nil
}

func parseStoryJSON(raw string) ([]story.Page, error) {
	var pages []story.Page
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		return nil, fmt.Errorf("unexpected story response shape: %w", err)
	}
	if len(pages) == 0 {
		return nil, errors.New("story response contained no pages")
	}
	return pages, nil
}

func contentKey(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}
