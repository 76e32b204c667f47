package mockbackend

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ymghtzz/LMeterX-sub000/pkg/models"
)

// Server is the mock LMeterX backend.
type Server struct {
	state  *State
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a mock backend over the given state.
func NewServer(state *State) *Server {
	if state == nil {
		state = NewState()
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		state:  state,
		router: router,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}

	s.setupRoutes()
	return s
}

// Router returns the gin router for httptest servers.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// State returns the underlying state for test manipulation.
func (s *Server) State() *State {
	return s.state
}

func (s *Server) setupRoutes() {
	apiGroup := s.router.Group("/api")

	apiGroup.GET("/health", s.handleHealth)

	apiGroup.GET("/tasks", s.handleListTasks)
	apiGroup.POST("/tasks", s.handleCreateTask)
	apiGroup.GET("/tasks/:id", s.handleGetTask)
	apiGroup.GET("/tasks/:id/status", s.handleTaskStatus)
	apiGroup.GET("/tasks/:id/results", s.handleTaskResults)
	apiGroup.POST("/tasks/stop/:id", s.handleStopTask)
	apiGroup.POST("/tasks/test", s.handleTestTarget)
	apiGroup.GET("/tasks/comparison/available", s.handleComparisonAvailable)
	apiGroup.POST("/tasks/comparison", s.handleComparison)

	apiGroup.GET("/logs/:service", s.handleServiceLogs)
	apiGroup.GET("/logs/task/:id", s.handleTaskLogs)

	apiGroup.GET("/results", s.handleListResults)

	apiGroup.POST("/analyze", s.handleAnalyze)
	apiGroup.GET("/analyze/:id", s.handleGetAnalysis)

	apiGroup.GET("/system", s.handleListConfig)
	apiGroup.POST("/system", s.handleCreateConfig)
	apiGroup.PUT("/system", s.handleUpdateConfig)
	apiGroup.DELETE("/system", s.handleDeleteConfig)
	apiGroup.POST("/system/batch", s.handleBatchConfig)
	apiGroup.GET("/system/ai-service", s.handleGetAIConfig)
	apiGroup.POST("/system/ai-service", s.handleSetAIConfig)

	apiGroup.POST("/upload", s.handleUpload)

	// Test control endpoints
	s.router.POST("/_test/reset", s.handleTestReset)
	s.router.POST("/_test/status", s.handleTestSetStatus)
	s.router.POST("/_test/log", s.handleTestAppendLog)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	jobs, total := s.state.ListJobs(page, pageSize, c.Query("status"), c.Query("search"))
	if jobs == nil {
		jobs = []models.BenchmarkJob{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": jobs,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		},
	})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var job models.BenchmarkJob
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task payload: " + err.Error()})
		return
	}
	if job.Name == "" || job.TargetHost == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error_message": "name and target_host are required"})
		return
	}

	created := s.state.CreateJob(job)
	s.logger.Info("task created", slog.String("task_id", created.ID))
	c.JSON(http.StatusOK, created)
}

func (s *Server) handleGetTask(c *gin.Context) {
	job, ok := s.state.GetJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleTaskStatus(c *gin.Context) {
	job, ok := s.state.GetJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, models.JobStatus{
		ID:        job.ID,
		Status:    job.Status,
		UpdatedAt: time.Now(),
	})
}

func (s *Server) handleStopTask(c *gin.Context) {
	status, ok := s.state.StopJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": status})
}

func (s *Server) handleTestTarget(c *gin.Context) {
	var req struct {
		TargetHost string `json:"target_host"`
		APIPath    string `json:"api_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetHost == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_host is required"})
		return
	}

	// The mock never probes a real endpoint; it reports a canned success.
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"status_code": 200,
		"response":    `{"choices":[{"delta":{"content":"pong"}}]}`,
		"latency_ms":  42,
	})
}

func (s *Server) handleTaskResults(c *gin.Context) {
	records, ok := s.state.Results(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no results for task"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleListResults(c *gin.Context) {
	records := s.state.AllResults(c.Query("model"))
	if records == nil {
		records = []models.MetricRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleComparisonAvailable(c *gin.Context) {
	candidates := s.state.ComparisonCandidates()
	if candidates == nil {
		candidates = []models.ComparisonCandidate{}
	}
	c.JSON(http.StatusOK, candidates)
}

func (s *Server) handleComparison(c *gin.Context) {
	var req struct {
		TaskIDs []string `json:"task_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.TaskIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_ids is required"})
		return
	}

	rows, err := s.state.Comparison(req.TaskIDs)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleServiceLogs(c *gin.Context) {
	s.serveLog(c, "service/"+c.Param("service"))
}

func (s *Server) handleTaskLogs(c *gin.Context) {
	s.serveLog(c, "task/"+c.Param("id"))
}

func (s *Server) serveLog(c *gin.Context, key string) {
	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	tail, _ := strconv.Atoi(c.DefaultQuery("tail", "0"))

	content, newOffset, unchanged, ok := s.state.ReadLog(key, offset, tail)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "log stream not found"})
		return
	}
	if unchanged {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content, "offset": newOffset})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req struct {
		TaskID string `json:"task_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	report, err := s.state.GenerateReport(req.TaskID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error_message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	report, ok := s.state.Report(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListConfig(c *gin.Context) {
	entries := s.state.ConfigEntries()
	if entries == nil {
		entries = []ConfigEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleCreateConfig(c *gin.Context) {
	s.putConfig(c, true)
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	s.putConfig(c, false)
}

func (s *Server) putConfig(c *gin.Context, create bool) {
	var entry ConfigEntry
	if err := c.ShouldBindJSON(&entry); err != nil || entry.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	if err := s.state.PutConfig(entry, create); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleDeleteConfig(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	if !s.state.DeleteConfig(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "config key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

func (s *Server) handleBatchConfig(c *gin.Context) {
	var req struct {
		Entries []ConfigEntry `json:"entries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entries is required"})
		return
	}
	s.state.BatchPutConfig(req.Entries)
	c.JSON(http.StatusOK, gin.H{"written": len(req.Entries)})
}

func (s *Server) handleGetAIConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.AIConfig())
}

func (s *Server) handleSetAIConfig(c *gin.Context) {
	var cfg AIServiceConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ai-service payload"})
		return
	}
	s.state.SetAIConfig(cfg)
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleUpload(c *gin.Context) {
	fileType := c.Query("file_type")
	taskID := c.Query("task_id")
	if fileType == "" || taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_type and task_id are required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart file field is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open upload"})
		return
	}
	defer f.Close()

	size, err := io.Copy(io.Discard, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}

	stored := s.state.StoreUpload(fileType, taskID, fileHeader.Filename, int(size))
	s.logger.Info("file uploaded",
		slog.String("task_id", taskID),
		slog.String("file_type", fileType),
		slog.Int64("size", size))
	c.JSON(http.StatusOK, stored)
}

func (s *Server) handleTestReset(c *gin.Context) {
	s.state.Reset()
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (s *Server) handleTestSetStatus(c *gin.Context) {
	var req struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID == "" || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id and status are required"})
		return
	}
	if !s.state.SetJobStatus(req.TaskID, req.Status) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.TaskID, "status": req.Status})
}

func (s *Server) handleTestAppendLog(c *gin.Context) {
	var req struct {
		Key     string `json:"key"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	s.state.AppendLog(req.Key, req.Content)
	c.JSON(http.StatusOK, gin.H{"appended": len(req.Content)})
}
