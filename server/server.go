// Package server exposes the HTTP surface: the Apify webhook that delivers
// Facebook datasets, an authenticated on-demand run endpoint, and health.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"hunter-backend/config"
	"hunter-backend/models"
	"hunter-backend/runner"
	"hunter-backend/scraper"
	"hunter-backend/scraper/facebook"
	"hunter-backend/services"
	"hunter-backend/utils"
)

const (
	webhookSecretHeader = "x-apify-webhook-secret"
	runSecretHeader     = "X-Run-Secret"
)

// runState tracks the single in-flight run. Only one scrape may run at a
// time; concurrent triggers get 409 instead of a second browser and a
// doubled crawl.
type runState struct {
	mu        sync.Mutex
	running   bool
	source    string
	startedAt time.Time

	lastStatus   string // "idle", "success", "error"
	lastSource   string
	lastFound    int
	lastUpserted int
	lastError    string
	lastFinished time.Time
}

// Server wires the HTTP endpoints to the runner.
type Server struct {
	cfg      *config.Config
	runner   *runner.Runner
	ingester *facebook.Ingester
	logger   *utils.Logger
	state    runState
}

// New creates the server and its Facebook ingester.
func New(cfg *config.Config, run *runner.Runner, logger *utils.Logger) *Server {
	client := scraper.NewClient(cfg.RateLimitMs, cfg.MaxRetries, logger)
	return &Server{
		cfg:      cfg,
		runner:   run,
		ingester: facebook.New(cfg, client, services.NewNormalizer(logger), logger),
		logger:   logger.WithTag("server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.POST("/webhook/apify", s.handleApifyWebhook)
	r.POST("/api/run", s.handleRun)
	r.GET("/api/run/status", s.handleRunStatus)

	return r
}

// ListenAndServe blocks serving HTTP on the configured address.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.ServerHost + ":" + s.cfg.ServerPort
	s.logger.Info("Listening on %s", addr)
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// apifyWebhookPayload is the subset of Apify's webhook body we care about.
// Older actor configs send a bare datasetId; the standard webhook nests it
// under resource.defaultDatasetId.
type apifyWebhookPayload struct {
	DatasetID string `json:"datasetId"`
	Resource  struct {
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"resource"`
}

func (s *Server) handleApifyWebhook(c *gin.Context) {
	if s.cfg.ApifyWebhookSecret != "" &&
		c.GetHeader(webhookSecretHeader) != s.cfg.ApifyWebhookSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var payload apifyWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	datasetID := payload.DatasetID
	if datasetID == "" {
		datasetID = payload.Resource.DefaultDatasetID
	}
	if datasetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no dataset id in payload"})
		return
	}

	s.logger.Info("Apify webhook: dataset %s", datasetID)
	go s.ingestDataset(datasetID)

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "dataset_id": datasetID})
}

func (s *Server) ingestDataset(datasetID string) {
	listings, err := s.ingester.Run(datasetID)
	if err != nil {
		s.logger.Error("Dataset %s ingest failed: %v", datasetID, err)
		return
	}
	if _, err := s.runner.PersistBatch(models.SourceFacebook, listings); err != nil {
		s.logger.Error("Dataset %s persist failed: %v", datasetID, err)
	}
}

type runRequest struct {
	Source string `json:"source"`
	DryRun bool   `json:"dry_run"`
}

func (s *Server) handleRun(c *gin.Context) {
	if s.cfg.RunAPISecret == "" || c.GetHeader(runSecretHeader) != s.cfg.RunAPISecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid run secret"})
		return
	}

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	label := req.Source
	if label == "" {
		label = "all"
	} else if _, err := runner.ParseSource(req.Source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.tryAcquire(label) {
		s.state.mu.Lock()
		running := s.state.source
		since := s.state.startedAt
		s.state.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{
			"error":      "a run is already in progress",
			"source":     running,
			"started_at": since.Format(time.RFC3339),
		})
		return
	}

	go s.executeRun(label, req)

	c.JSON(http.StatusAccepted, gin.H{"status": "started", "source": label})
}

func (s *Server) tryAcquire(label string) bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if s.state.running {
		return false
	}
	s.state.running = true
	s.state.source = label
	s.state.startedAt = time.Now()
	return true
}

func (s *Server) executeRun(label string, req runRequest) {
	var (
		found, upserted int
		status          = runner.StatusSuccess
		errMsg          string
	)

	if req.Source == "" {
		results, err := s.runner.RunAll(req.DryRun)
		if err != nil {
			status, errMsg = runner.StatusError, err.Error()
		}
		for _, res := range results {
			found += res.Found
			upserted += res.Upserted
			if res.Status != runner.StatusSuccess {
				status, errMsg = runner.StatusError, res.Error
			}
		}
	} else {
		source, _ := runner.ParseSource(req.Source)
		res, err := s.runner.Run(source, req.DryRun)
		if err != nil {
			status, errMsg = runner.StatusError, err.Error()
		} else {
			found, upserted = res.Found, res.Upserted
			if res.Status != runner.StatusSuccess {
				status, errMsg = res.Status, res.Error
			}
		}
	}

	s.state.mu.Lock()
	s.state.running = false
	s.state.source = ""
	s.state.lastStatus = status
	s.state.lastSource = label
	s.state.lastFound = found
	s.state.lastUpserted = upserted
	s.state.lastError = errMsg
	s.state.lastFinished = time.Now()
	s.state.mu.Unlock()
}

func (s *Server) handleRunStatus(c *gin.Context) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.state.running {
		c.JSON(http.StatusOK, gin.H{
			"status":     "running",
			"source":     s.state.source,
			"started_at": s.state.startedAt.Format(time.RFC3339),
		})
		return
	}

	if s.state.lastStatus == "" {
		c.JSON(http.StatusOK, gin.H{"status": "idle"})
		return
	}

	resp := gin.H{
		"status":      s.state.lastStatus,
		"source":      s.state.lastSource,
		"found":       s.state.lastFound,
		"upserted":    s.state.lastUpserted,
		"finished_at": s.state.lastFinished.Format(time.RFC3339),
	}
	if s.state.lastError != "" {
		resp["error"] = s.state.lastError
	}
	c.JSON(http.StatusOK, resp)
}
