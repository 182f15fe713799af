package adapters

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"recap/internal/stageerr"
	"recap/internal/textchunk"
)

// GeminiSummarizer is the hosted alternative to the local Ollama backend.
type GeminiSummarizer struct {
	apiKey        string
	maxChunkChars int
}

func NewGeminiSummarizer(apiKey string, maxChunkChars int) *GeminiSummarizer {
	if maxChunkChars <= 0 {
		maxChunkChars = textchunk.DefaultMaxChars
	}
	return &GeminiSummarizer{apiKey: apiKey, maxChunkChars: maxChunkChars}
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, transcript string, participants []string, model string) (Summary, error) {
	if s.apiKey == "" {
		return Summary{}, stageerr.Permanentf("gemini api key not configured")
	}
	if model == "" {
		return Summary{}, stageerr.Permanentf("summarizer model not specified")
	}
	chunks := textchunk.Split(transcript, s.maxChunkChars)
	if len(chunks) == 0 {
		return Summary{}, stageerr.Permanentf("transcript is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("create gemini client: %w", err)
	}

	prompt := bulletSummaryPrompt
	if len(participants) > 0 {
		prompt += fmt.Sprintf("Meeting participants: %s\n\n", strings.Join(participants, ", "))
	}

	log.Infof("Generating bullet summary with %s (%d chunk(s))", model, len(chunks))

	var bullets []string
	for i, chunk := range chunks {
		result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt+chunk), nil)
		if err != nil {
			return Summary{}, fmt.Errorf("bullet summary chunk %d/%d: %w", i+1, len(chunks), err)
		}
		bullets = append(bullets, StripThinkTags(result.Text()))
	}
	bullet := strings.Join(bullets, "\n\n")

	log.Info("Generating executive summary")
	result, err := client.Models.GenerateContent(ctx, model, genai.Text(execSummaryPrompt+bullet), nil)
	if err != nil {
		return Summary{}, fmt.Errorf("executive summary: %w", err)
	}

	return Summary{Bullet: bullet, Exec: StripThinkTags(result.Text())}, nil
}

var _ Summarizer = (*GeminiSummarizer)(nil)
