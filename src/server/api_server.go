package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"series-canon/src/interfaces"
	"series-canon/src/logger"
	"series-canon/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	DB     interfaces.IDatabase
	engine *gin.Engine
	http   *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestData // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, db interfaces.IDatabase, logger *logger.Logger) *APIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Queue size of 256 absorbs bursts of run reports
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latestState: &models.MLatestData{
			Type:       "INITIAL",
			Reports:    make(map[string]models.MRunReport),
			Aggregates: []models.MDailyAggregate{},
		},
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/aggregates", s.getAggregates)
	api.GET("/rejected", s.getRejected)
	api.GET("/runs/latest", s.getLatestRuns)

	// Prometheus scrape endpoint
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	s.http = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	s.stopOnce.Do(func() { close(s.done) })

	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"name":          s.Config.Name,
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sources": s.Config.Sources,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getAggregates(c *gin.Context) {
	from, err := dateParam(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := dateParam(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aggs, err := s.DB.ListAggregates(c.Request.Context(), models.MAggregateFilter{
		Source:   c.Query("source"),
		Metric:   c.Query("metric"),
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		s.Logger.Error("List aggregates failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list aggregates"})
		return
	}

	c.JSON(http.StatusOK, aggs)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getRejected(c *gin.Context) {
	limit, err := intParam(c, "limit", 100)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rejected, err := s.DB.ListRejected(c.Request.Context(), c.Query("source"), limit)
	if err != nil {
		s.Logger.Error("List rejected failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rejected records"})
		return
	}
	if rejected == nil {
		rejected = []models.MRejectedRecord{}
	}

	c.JSON(http.StatusOK, rejected)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getLatestRuns(c *gin.Context) {
	s.stateMutex.RLock()
	reports := s.latestState.Reports
	s.stateMutex.RUnlock()

	if source := c.Query("source"); source != "" {
		report, ok := reports[source]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no run for source " + source})
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	c.JSON(http.StatusOK, reports)
}

// -----------------------------------------------------------------------------

// requestLogger logs each request through the component logger.
func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
