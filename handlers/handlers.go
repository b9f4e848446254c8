package handlers

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/nijaru/vidsight/analysis"
	"github.com/nijaru/vidsight/config"
	"github.com/nijaru/vidsight/errors"
	"github.com/nijaru/vidsight/jobs"
	"github.com/nijaru/vidsight/metrics"
	"github.com/nijaru/vidsight/middleware"
	"github.com/nijaru/vidsight/models"
	"github.com/nijaru/vidsight/utils"
	"github.com/nijaru/vidsight/validation"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// multipart bodies carry some framing on top of the file itself
const formOverhead = 1 << 20

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	cfg       *config.Config
	runner    *jobs.Runner
	validator *validation.Validator
	db        Pinger
	metrics   *metrics.Metrics
}

func New(cfg *config.Config, runner *jobs.Runner, db Pinger, m *metrics.Metrics) *Handler {
	return &Handler{
		cfg:       cfg,
		runner:    runner,
		validator: validation.NewValidator(cfg.Analysis.MaxUploadSize),
		db:        db,
		metrics:   m,
	}
}

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	if h.metrics != nil {
		r.Use(h.metrics.Instrument)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Location"},
		MaxAge:         300,
	}))

	limiter := middleware.NewRateLimiter(h.cfg.RateLimit, h.cfg.RateLimitInterval)

	r.Get("/", h.Index)
	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.With(limiter.Middleware).Post("/analyze", h.Analyze)
		r.Get("/analyses", h.ListAnalyses)
		r.Get("/analyses/{id}", h.GetAnalysis)
	})

	return r
}

type indexData struct {
	Enabled       bool
	Warning       string
	DefaultPrompt string
	Accept        string
	PollInterval  int64
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Enabled:       h.runner.Enabled(),
		DefaultPrompt: h.cfg.Analysis.DefaultPrompt,
		Accept:        acceptList(),
		PollInterval:  h.cfg.Analysis.PollInterval.Milliseconds(),
	}
	if !data.Enabled {
		data.Warning = analysis.ConfigurationWarning
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to render index")
	}
}

// Analyze accepts a multipart upload with a "video" file and an optional
// "prompt". With wait=true it responds once the analysis has finished.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.Analyze"
	logger := middleware.GetLogger(r.Context())

	if !h.runner.Enabled() {
		utils.RespondWithError(w, errors.Configuration(op, analysis.ConfigurationWarning))
		return
	}

	if h.cfg.Analysis.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Analysis.MaxUploadSize+formOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.RespondWithError(w, errors.E(op, errors.KindInvalidInput, err,
				"file is too large", http.StatusRequestEntityTooLarge))
			return
		}
		if err != http.ErrNotMultipart && err != http.ErrMissingBoundary {
			utils.RespondWithError(w, errors.InvalidInput(op, err, "invalid multipart form"))
			return
		}
	}

	req, err := h.readRequest(r)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	logger.WithField("filename", req.Video.Filename).Info("Received video")

	if r.FormValue("wait") == "true" {
		job, err := h.runner.Analyze(r.Context(), req)
		if err != nil {
			utils.RespondWithError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, models.NewJobResponse(job))
		return
	}

	job, err := h.runner.Submit(r.Context(), req)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	w.Header().Set("Location", "/api/analyses/"+job.ID)
	utils.RespondWithJSON(w, http.StatusAccepted, models.NewJobResponse(job))
}

func (h *Handler) readRequest(r *http.Request) (jobs.Request, error) {
	const op = "Handler.readRequest"

	file, header, err := r.FormFile("video")
	if err != nil {
		return jobs.Request{}, errors.MissingInput(op, analysis.MissingInputMessage)
	}
	defer file.Close()

	mediaType, err := h.validator.ValidateUpload(header.Filename, header.Size)
	if err != nil {
		return jobs.Request{}, err
	}

	// An absent prompt field gets the default. An explicitly empty prompt
	// is sent as is.
	prompt := h.cfg.Analysis.DefaultPrompt
	if r.MultipartForm != nil {
		if values, ok := r.MultipartForm.Value["prompt"]; ok && len(values) > 0 {
			prompt = values[0]
		}
	}
	if err := h.validator.ValidatePrompt(prompt); err != nil {
		return jobs.Request{}, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return jobs.Request{}, errors.InvalidInput(op, err, "failed to read uploaded file")
	}

	return jobs.Request{
		Video: &models.Payload{
			Filename:  header.Filename,
			MediaType: mediaType,
			Data:      data,
		},
		Prompt: prompt,
	}, nil
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	job, err := h.runner.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.NewJobResponse(job))
}

// ListAnalyses returns recent jobs, newest first. The optional limit
// query parameter is clamped by the runner.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	const op = "Handler.ListAnalyses"

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			utils.RespondWithError(w, errors.InvalidInput(op, err, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	list, err := h.runner.List(r.Context(), limit)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}

	resp := make([]*models.JobResponse, 0, len(list))
	for _, job := range list {
		resp = append(resp, models.NewJobResponse(job))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	GeminiConfigured bool   `json:"gemini_configured"`
	Model            string `json:"model"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:           "ok",
		Database:         "ok",
		GeminiConfigured: h.runner.Enabled(),
		Model:            h.cfg.Gemini.Model,
	}
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Database ping failed")
		resp.Status = "degraded"
		resp.Database = "unavailable"
		code = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, code, resp)
}

func acceptList() string {
	return strings.Join(validation.SupportedExtensions, ",")
}
