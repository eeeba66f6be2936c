package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"news-trader/internal/logger"
	"news-trader/internal/predict"
	"news-trader/internal/scrape"
	"news-trader/internal/trading"
)

// Server exposes the scrape, predict and trading operations over HTTP.
// Every response is a {success, ...} envelope.
type Server struct {
	coordinator *scrape.Coordinator
	engine      *predict.Engine
	sizer       *trading.Sizer
}

// New creates the HTTP server around the three core operations.
func New(c *scrape.Coordinator, e *predict.Engine, s *trading.Sizer) *Server {
	return &Server{coordinator: c, engine: e, sizer: s}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	r.POST("/execute-scrape-jobs", s.executeScrapeJobs)
	r.POST("/predict", s.runPredict)
	r.POST("/trade", s.runTrade)
	r.POST("/liquidate", s.runLiquidate)

	return r
}

type scrapeRequest struct {
	Stocks   []string `json:"stocks"`
	Lookback int      `json:"lookback"`
}

// executeScrapeJobs runs a full scrape cycle and then aggregates it. A
// failed aggregation still reports the run id so the operator can inspect
// partial state.
func (s *Server) executeScrapeJobs(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if len(req.Stocks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "stocks list required"})
		return
	}
	if req.Lookback <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "lookback required"})
		return
	}

	start := time.Now()
	ctx := c.Request.Context()

	runID, err := s.coordinator.Run(ctx, req.Stocks)
	if err != nil {
		logger.ErrorWithErr(ctx, "Scrape run failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if _, err := s.engine.Aggregate(ctx, runID, req.Lookback); err != nil {
		logger.ErrorWithErr(ctx, "Aggregation failed after scrape", err, "run_id", runID)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "run_id": runID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"run_id":       runID,
		"elapsed_time": fmt.Sprintf("%ds", int(time.Since(start).Seconds())),
	})
}

type predictRequest struct {
	RunID    string `json:"run_id"`
	Lookback int    `json:"lookback"`
}

func (s *Server) runPredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if req.RunID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "run_id required"})
		return
	}
	if req.Lookback <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "lookback required"})
		return
	}

	result, err := s.engine.Aggregate(c.Request.Context(), req.RunID, req.Lookback)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "run_id": req.RunID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"run_id":      result.RunID,
		"top_symbols": result.TopSymbols,
		"table":       result.Table,
	})
}

type tradeRequest struct {
	Symbols []string `json:"symbols"`
}

func (s *Server) runTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "symbols list required"})
		return
	}

	ctx := c.Request.Context()
	orders, err := s.sizer.BuildOrders(ctx, req.Symbols)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := s.sizer.SubmitOrders(ctx, orders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

func (s *Server) runLiquidate(c *gin.Context) {
	if err := s.sizer.Liquidate(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
