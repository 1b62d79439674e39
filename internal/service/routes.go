package service

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router builds the control API.
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.POST("/start", s.handleStart)
	r.POST("/stop", s.handleStop)
	r.POST("/run", s.handleRun)
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Control API request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Service) handleHealth(c *gin.Context) {
	if s.health != nil && !s.health.IsHealthy(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Service) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": s.Status()})
}

func (s *Service) handleStart(c *gin.Context) {
	if err := s.Start(); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": s.Status()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "started", "status": s.Status()})
}

func (s *Service) handleStop(c *gin.Context) {
	if err := s.Stop(); err != nil {
		c.JSON(http.StatusOK, gin.H{"msg": "no running loop"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "stopped", "status": s.Status()})
}

func (s *Service) handleRun(c *gin.Context) {
	res, err := s.RunNow(c.Request.Context())
	if err != nil {
		s.log.Error("Manual run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"msg": "ok",
		"result": RunSummary{
			RunID:       res.RunID,
			Fetched:     res.Fetched,
			Inserted:    res.Append.Inserted,
			Duplicates:  res.Append.Duplicates,
			Quarantined: res.Quarantined,
		},
	})
}
