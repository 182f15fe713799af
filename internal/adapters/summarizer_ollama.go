package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"recap/internal/stageerr"
	"recap/internal/textchunk"
)

// OllamaSummarizer talks to a local Ollama instance through its
// OpenAI-compatible endpoint. Transcripts too long for the model's context
// window are summarized chunk by chunk and the bullets concatenated before
// the executive-summary pass.
type OllamaSummarizer struct {
	client        *openai.Client
	maxChunkChars int
}

func NewOllamaSummarizer(host string, maxChunkChars int) *OllamaSummarizer {
	cfg := openai.DefaultConfig("ollama") // Ollama ignores the key
	cfg.BaseURL = strings.TrimRight(host, "/") + "/v1"
	if maxChunkChars <= 0 {
		maxChunkChars = textchunk.DefaultMaxChars
	}
	return &OllamaSummarizer{
		client:        openai.NewClientWithConfig(cfg),
		maxChunkChars: maxChunkChars,
	}
}

func (s *OllamaSummarizer) Summarize(ctx context.Context, transcript string, participants []string, model string) (Summary, error) {
	if model == "" {
		return Summary{}, stageerr.Permanentf("summarizer model not specified")
	}
	chunks := textchunk.Split(transcript, s.maxChunkChars)
	if len(chunks) == 0 {
		return Summary{}, stageerr.Permanentf("transcript is empty")
	}

	prompt := bulletSummaryPrompt
	if len(participants) > 0 {
		prompt += fmt.Sprintf("Meeting participants: %s\n\n", strings.Join(participants, ", "))
	}

	log.Infof("Generating bullet summary with %s (%d chunk(s))", model, len(chunks))

	var bullets []string
	for i, chunk := range chunks {
		out, err := s.complete(ctx, model, prompt+chunk)
		if err != nil {
			return Summary{}, fmt.Errorf("bullet summary chunk %d/%d: %w", i+1, len(chunks), err)
		}
		bullets = append(bullets, StripThinkTags(out))
	}
	bullet := strings.Join(bullets, "\n\n")

	log.Info("Generating executive summary")
	out, err := s.complete(ctx, model, execSummaryPrompt+bullet)
	if err != nil {
		return Summary{}, fmt.Errorf("executive summary: %w", err)
	}

	return Summary{Bullet: bullet, Exec: StripThinkTags(out)}, nil
}

func (s *OllamaSummarizer) complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ollama completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Summarizer = (*OllamaSummarizer)(nil)
