package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"recap/internal/adapters"
	"recap/internal/models"
)

var (
	submitTitle           string
	submitWhisperModel    string
	submitSummarizerModel string
	submitDiarize         bool
	submitMinSpeakers     int
	submitMaxSpeakers     int
	submitFormat          string
)

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Submit an audio recording or transcript for processing",
	Long: `Submits a file for background processing. Audio files run the full
transcription pipeline; .txt and .docx transcripts go straight to
summarization.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		defer appInstance.Close()
		cfg := appInstance.Config

		path := args[0]
		filename := filepath.Base(path)
		ext := strings.ToLower(filepath.Ext(filename))

		var job *models.Job
		switch {
		case adapters.AllowedAudioExtensions[ext]:
			job, err = models.NewAudioProcessingJob(models.AudioProcessingParams{
				Title:             submitTitle,
				OriginalFilename:  filename,
				WhisperModel:      defaultString(submitWhisperModel, cfg.Transcriber.DefaultModel),
				SummarizerModel:   defaultString(submitSummarizerModel, cfg.Summarizer.DefaultModel),
				EnableDiarization: submitDiarize,
				MinSpeakers:       optionalFlag(submitMinSpeakers),
				MaxSpeakers:       optionalFlag(submitMaxSpeakers),
				OutputFormat:      submitFormat,
			}, cfg.Retention.JobTTL)
		case adapters.AllowedTranscriptExtensions[ext]:
			job, err = models.NewTranscriptSummaryJob(models.TranscriptSummaryParams{
				Title:            submitTitle,
				OriginalFilename: filename,
				SummarizerModel:  defaultString(submitSummarizerModel, cfg.Summarizer.DefaultModel),
				OutputFormat:     submitFormat,
			}, cfg.Retention.JobTTL)
		default:
			return fmt.Errorf("unsupported file type %q", ext)
		}
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer src.Close()
		if err := appInstance.ArtifactStore.SaveInput(job, src); err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := appInstance.JobStore.CreateJob(ctx, job); err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		if err := appInstance.Orchestrator.Submit(ctx, job); err != nil {
			return err
		}

		color.Green("Submitted %s job %s", job.Kind, job.ID)
		fmt.Printf("Expires: %s\n", job.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "Meeting title used in the summary document")
	submitCmd.Flags().StringVar(&submitWhisperModel, "whisper-model", "", "Whisper model size (default from config)")
	submitCmd.Flags().StringVar(&submitSummarizerModel, "summarizer-model", "", "Summarization model (default from config)")
	submitCmd.Flags().BoolVar(&submitDiarize, "diarize", false, "Enable speaker diarization (audio jobs only)")
	submitCmd.Flags().IntVar(&submitMinSpeakers, "min-speakers", 0, "Minimum speaker count hint")
	submitCmd.Flags().IntVar(&submitMaxSpeakers, "max-speakers", 0, "Maximum speaker count hint")
	submitCmd.Flags().StringVar(&submitFormat, "format", "", "Output format: md, pdf, docx or html (default pdf)")
}

func defaultString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func optionalFlag(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}
