package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agenthands/exoseek/internal/config"
	"github.com/agenthands/exoseek/internal/core"
	"github.com/agenthands/exoseek/internal/ginx"
	"github.com/agenthands/exoseek/internal/inference"
	"github.com/agenthands/exoseek/internal/ingest"
	"github.com/agenthands/exoseek/internal/logger"
	"github.com/agenthands/exoseek/internal/schema"
	"github.com/agenthands/exoseek/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	// previewColumns is how many leading schema features the batch table shows.
	previewColumns = 4
	healthTimeout  = 5 * time.Second
)

type Server struct {
	Service  *core.Service
	Sessions *session.Store
	MaxBytes int64

	log *logger.ZapLogger
}

func New(svc *core.Service, sessions *session.Store, maxBytes int64, log *logger.ZapLogger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		Service:  svc,
		Sessions: sessions,
		MaxBytes: maxBytes,
		log:      log,
	}
}

// NewFromConfig wires the schema, ingestor, gateway client and session store.
func NewFromConfig(cfg *config.Config, log *logger.ZapLogger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	client, err := inference.NewClient(cfg.Service, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}

	s := schema.Default()
	svc := core.NewService(s, ingest.NewIngestor(s, cfg.Upload.MaxRows), client, log)
	store := session.NewStore(s, time.Duration(cfg.Session.TTLMinutes)*time.Minute)

	return New(svc, store, cfg.Upload.MaxBytes, log), nil
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// CheckClassifier probes the classification service when the predictor
// supports it. A failure is only reported; the API still starts.
func (s *Server) CheckClassifier(ctx context.Context) {
	hc, ok := s.Service.Predictor.(healthChecker)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := hc.Health(ctx); err != nil {
		s.log.Warnf(ctx, "classification service not reachable: %v", err)
		return
	}
	s.log.Infof(ctx, "classification service is up")
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(ginx.Recovery(s.log.Zap()))
	r.Use(ginx.Logger(s.log.Zap()))
	r.Use(ginx.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "exoseek",
		})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/schema", s.GetSchema)
		v1.POST("/sessions", s.CreateSession)

		sessions := v1.Group("/sessions/:id")
		{
			sessions.DELETE("", s.EndSession)
			sessions.GET("/form", s.GetForm)
			sessions.PATCH("/form", s.UpdateForm)
			sessions.POST("/form/reset", s.ResetForm)
			sessions.POST("/predict", s.Predict)
			sessions.POST("/upload", s.Upload)
			sessions.GET("/batch", s.GetBatch)
			sessions.POST("/batch/analyze", s.AnalyzeBatch)
		}
	}

	return r
}
