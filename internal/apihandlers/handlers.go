package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recap/internal/adapters"
	"recap/internal/app"
	"recap/internal/models"
	"recap/internal/store"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(app *app.App) *APIHandler {
	return &APIHandler{App: app}
}

// RegisterRoutes mounts the API under /api/v1 plus the health probe.
func (h *APIHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.HealthHandler)

	v1 := r.Group("/api/v1")
	v1.POST("/jobs", h.CreateJobHandler)
	v1.GET("/jobs", h.ListJobsHandler)
	v1.GET("/jobs/:id", h.GetJobHandler)
	v1.POST("/jobs/:id/cancel", h.CancelJobHandler)
	v1.GET("/jobs/:id/files/:filename", h.DownloadHandler)
}

// JobResponse is the status projection served to clients.
type JobResponse struct {
	ID                string             `json:"id"`
	Kind              models.JobKind     `json:"kind"`
	Status            models.JobStatus   `json:"status"`
	Title             string             `json:"title,omitempty"`
	OriginalFilename  string             `json:"original_filename"`
	WhisperModel      string             `json:"whisper_model,omitempty"`
	SummarizerModel   string             `json:"summarizer_model"`
	EnableDiarization bool               `json:"enable_diarization"`
	MinSpeakers       *int               `json:"min_speakers,omitempty"`
	MaxSpeakers       *int               `json:"max_speakers,omitempty"`
	OutputFormat      string             `json:"output_format"`
	ProgressPercent   int                `json:"progress_percent"`
	ProgressMessage   string             `json:"progress_message"`
	ErrorMessage      *string            `json:"error_message,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	ExpiresAt         time.Time          `json:"expires_at"`
	IsExpired         bool               `json:"is_expired"`
	CanDownload       bool               `json:"can_download"`
	OutputFiles       []store.OutputFile `json:"output_files,omitempty"`
}

// CreateJobHandler accepts a multipart upload and enqueues a job. The job
// kind follows the file extension: audio formats run the full pipeline,
// txt/docx go straight to summarization.
func (h *APIHandler) CreateJobHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "Missing required 'file' upload")
		return
	}
	defer file.Close()

	if max := h.App.Config.Upload.MaxBytes; max > 0 && header.Size > max {
		TooLarge(c, fmt.Sprintf("File exceeds the %s upload limit", models.HumanReadableSize(max)))
		return
	}

	filename := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))

	job, err := h.buildJob(c, filename, ext)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.App.ArtifactStore.SaveInput(job, file); err != nil {
		Internal(c, fmt.Sprintf("Failed to store upload: %v", err))
		return
	}
	if err := h.App.JobStore.CreateJob(c.Request.Context(), job); err != nil {
		Internal(c, fmt.Sprintf("Failed to create job: %v", err))
		return
	}
	if err := h.App.Orchestrator.Submit(c.Request.Context(), job); err != nil {
		Internal(c, fmt.Sprintf("Failed to enqueue job: %v", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": h.projectJob(job)})
}

func (h *APIHandler) buildJob(c *gin.Context, filename, ext string) (*models.Job, error) {
	cfg := h.App.Config
	ttl := cfg.Retention.JobTTL

	title := c.PostForm("title")
	outputFormat := c.PostForm("output_format")
	summarizerModel := c.DefaultPostForm("summarizer_model", cfg.Summarizer.DefaultModel)

	switch {
	case adapters.AllowedAudioExtensions[ext]:
		minSpeakers, err := optionalIntForm(c, "min_speakers")
		if err != nil {
			return nil, err
		}
		maxSpeakers, err := optionalIntForm(c, "max_speakers")
		if err != nil {
			return nil, err
		}
		return models.NewAudioProcessingJob(models.AudioProcessingParams{
			Title:             title,
			OriginalFilename:  filename,
			WhisperModel:      c.DefaultPostForm("whisper_model", cfg.Transcriber.DefaultModel),
			SummarizerModel:   summarizerModel,
			EnableDiarization: c.PostForm("enable_diarization") == "true",
			MinSpeakers:       minSpeakers,
			MaxSpeakers:       maxSpeakers,
			OutputFormat:      outputFormat,
		}, ttl)
	case adapters.AllowedTranscriptExtensions[ext]:
		return models.NewTranscriptSummaryJob(models.TranscriptSummaryParams{
			Title:            title,
			OriginalFilename: filename,
			SummarizerModel:  summarizerModel,
			OutputFormat:     outputFormat,
		}, ttl)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

func optionalIntForm(c *gin.Context, field string) (*int, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return nil, fmt.Errorf("invalid %s: %s", field, raw)
	}
	return &v, nil
}

func (h *APIHandler) GetJobHandler(c *gin.Context) {
	job, ok := h.fetchJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.projectJob(job)})
}

func (h *APIHandler) ListJobsHandler(c *gin.Context) {
	limit := 20
	offset := 0
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		} else {
			BadRequest(c, "Invalid limit: "+l)
			return
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		} else {
			BadRequest(c, "Invalid offset: "+o)
			return
		}
	}

	jobs, err := h.App.JobStore.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to list jobs: %v", err))
		return
	}

	items := make([]JobResponse, len(jobs))
	for i, job := range jobs {
		items[i] = h.projectJob(job)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *APIHandler) CancelJobHandler(c *gin.Context) {
	id, err := parseJobID(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.App.Orchestrator.Cancel(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			NotFound(c, fmt.Sprintf("Job not found: %s", id))
		case errors.Is(err, models.ErrInvalidState):
			Conflict(c, fmt.Sprintf("Job %s can no longer be cancelled", id))
		default:
			Internal(c, fmt.Sprintf("Failed to cancel job: %v", err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id.String(), "status": models.JobStatusFailed}})
}

// DownloadHandler serves one output artifact of a completed, unexpired job.
func (h *APIHandler) DownloadHandler(c *gin.Context) {
	job, ok := h.fetchJob(c)
	if !ok {
		return
	}
	if !job.CanDownload(time.Now()) {
		Conflict(c, fmt.Sprintf("Job %s has no downloadable results", job.ID))
		return
	}

	filename := filepath.Base(c.Param("filename"))
	outputs, err := h.App.ArtifactStore.ListOutputs(job)
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to read outputs: %v", err))
		return
	}
	for _, f := range outputs {
		if f.Name == filename {
			c.FileAttachment(filepath.Join(h.App.ArtifactStore.OutputDir(job), filename), filename)
			return
		}
	}
	NotFound(c, fmt.Sprintf("No output file %q for job %s", filename, job.ID))
}

func (h *APIHandler) HealthHandler(c *gin.Context) {
	if err := h.App.JobStore.Ping(c.Request.Context()); err != nil {
		Unavailable(c, "Database unreachable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) fetchJob(c *gin.Context) (*models.Job, bool) {
	id, err := parseJobID(c)
	if err != nil {
		BadRequest(c, err.Error())
		return nil, false
	}
	job, err := h.App.JobStore.GetJob(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			NotFound(c, fmt.Sprintf("Job not found: %s", id))
		} else {
			Internal(c, fmt.Sprintf("Failed to retrieve job: %v", err))
		}
		return nil, false
	}
	return job, true
}

func parseJobID(c *gin.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id: %s", raw)
	}
	return id, nil
}

func (h *APIHandler) projectJob(job *models.Job) JobResponse {
	now := time.Now()
	resp := JobResponse{
		ID:                job.ID.String(),
		Kind:              job.Kind,
		Status:            job.Status,
		Title:             job.Title,
		OriginalFilename:  job.OriginalFilename,
		WhisperModel:      job.WhisperModel,
		SummarizerModel:   job.SummarizerModel,
		EnableDiarization: job.EnableDiarization,
		MinSpeakers:       job.MinSpeakers,
		MaxSpeakers:       job.MaxSpeakers,
		OutputFormat:      job.OutputFormat,
		ProgressPercent:   job.ProgressPercent,
		ProgressMessage:   job.ProgressMessage,
		ErrorMessage:      job.ErrorMessage,
		CreatedAt:         job.CreatedAt,
		CompletedAt:       job.CompletedAt,
		ExpiresAt:         job.ExpiresAt,
		IsExpired:         job.IsExpired(now),
		CanDownload:       job.CanDownload(now),
	}
	if resp.CanDownload {
		if files, err := h.App.ArtifactStore.ListOutputs(job); err == nil {
			resp.OutputFiles = files
		}
	}
	return resp
}
