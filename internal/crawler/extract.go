package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"kigurumi/api/internal/store"
)

// ErrExtraction marks upstream LLM failures. Callers surface these as a bad
// gateway, not as "no character found".
var ErrExtraction = errors.New("character extraction failed")

const extractSystemPrompt = `You identify anime, game and vtuber characters from tweet text and attached images.

Respond with a single JSON object:
{
  "name": "character display name",
  "originalName": "character name in its original language",
  "type": "character category, e.g. anime, game, vtuber",
  "officialImage": "direct URL to an official character image, or empty string",
  "source": {
    "title": "title of the work the character is from",
    "company": "studio or publisher",
    "releaseYear": 0
  }
}

Prefer official art over fan works or cosplay photos for officialImage, and
only use direct image links. If no specific character can be identified,
respond with exactly: null

Respond with the JSON only, no surrounding text.`

// Extractor identifies characters in tweets using a vision-capable chat
// model.
type Extractor struct {
	client openai.Client
	model  string
	images *ImageChecker
}

func NewExtractor(apiKey, model string) *Extractor {
	return &Extractor{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		images: NewImageChecker(),
	}
}

type llmCharacter struct {
	Name          string        `json:"name"`
	OriginalName  string        `json:"originalName"`
	Type          string        `json:"type"`
	OfficialImage string        `json:"officialImage"`
	Source        *store.Source `json:"source"`
}

// ExtractCharacter asks the model which character a tweet shows. A nil draft
// with nil error means the model found no identifiable character; an
// ErrExtraction means the upstream call itself failed.
func (e *Extractor) ExtractCharacter(ctx context.Context, tweet Tweet) (*store.CharacterDraft, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart("Tweet text: " + tweet.Text),
	}
	for _, imageURL := range tweet.Images() {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: imageURL,
		}))
	}

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractSystemPrompt),
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrExtraction)
	}

	text := stripFences(resp.Choices[0].Message.Content)
	if strings.EqualFold(text, "null") {
		return nil, nil
	}

	var char llmCharacter
	if err := json.Unmarshal([]byte(text), &char); err != nil {
		return nil, nil
	}
	if char.Name == "" || char.OriginalName == "" || char.Type == "" || char.Source == nil {
		return nil, nil
	}

	// Models hallucinate image URLs often enough that each one gets probed.
	if char.OfficialImage != "" {
		if ok, _ := e.images.IsReachableImage(ctx, char.OfficialImage); !ok {
			char.OfficialImage = ""
		}
	}

	return &store.CharacterDraft{
		Name:          char.Name,
		OriginalName:  char.OriginalName,
		Type:          char.Type,
		OfficialImage: char.OfficialImage,
		Source:        char.Source,
	}, nil
}

// ExtractFromImage identifies the character shown in a single image. The
// URL is probed first so obviously broken input never reaches the model.
func (e *Extractor) ExtractFromImage(ctx context.Context, imageURL string) (*store.CharacterDraft, error) {
	if ok, _ := e.images.IsReachableImage(ctx, imageURL); !ok {
		return nil, fmt.Errorf("%w: unreachable image url", ErrExtraction)
	}
	return e.ExtractCharacter(ctx, Tweet{
		Media: []Media{{Type: "image", URL: imageURL}},
	})
}

// stripFences removes a markdown code fence the model may wrap its JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
