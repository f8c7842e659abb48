package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osintlab/sleuth/config"
	"github.com/osintlab/sleuth/internal/agent"
	"github.com/osintlab/sleuth/internal/agent/telemetry"
	"github.com/osintlab/sleuth/internal/evidence"
	"github.com/osintlab/sleuth/internal/ingest"
	"github.com/osintlab/sleuth/internal/llm"
	"github.com/osintlab/sleuth/internal/news"
	"github.com/osintlab/sleuth/internal/session"
)

// Server wires the query pipeline, evidence store and session store behind
// an HTTP API.
type Server struct {
	cfg       *config.Config
	echo      *echo.Echo
	store     *evidence.Store
	sessions  session.Store
	documents *agent.DocumentAgent
	newsAgent *agent.NewsAgent
	multi     *agent.MultiAgent
	headlines headlineSource
	ingestor  *ingest.Ingestor
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

type headlineSource interface {
	TopHeadlines(ctx context.Context, category, country string, maxResults int) ([]news.Article, error)
}

// New builds a fully wired Server from configuration. The session store
// falls back to in-memory when Redis is not reachable, so a single-node
// deployment works without one.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	st, err := evidence.NewWithDSN(ctx, cfg.Storage.Postgres.DSN(), cfg.Pipeline.SimilarityMetric)
	if err != nil {
		return nil, fmt.Errorf("connecting evidence store: %w", err)
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	provider := llm.NewOpenAIProvider(cfg.LLM, tele)

	synth := agent.NewSynthesizer(provider, cfg.Pipeline.AllowLocalOnly)
	newsClient := news.NewClient(cfg.Sources.NewsAPI)
	docAgent := agent.NewDocumentAgent(agent.NewEvidenceSearcher(st, provider, cfg.Pipeline.RelevanceCutoff), synth, tele)
	newsAgent := agent.NewNewsAgent(newsClient, synth, tele)
	multi := agent.NewMultiAgent(docAgent, newsAgent, synth, tele)

	var sessions session.Store
	rs, err := session.NewRedisStore(ctx, cfg.Storage.Redis.Addr(), cfg.Storage.Redis.Password,
		cfg.Storage.Redis.DB, 2*cfg.Pipeline.HistoryMaxTurns, 0)
	if err != nil {
		log.Printf("[SERVER] redis unavailable (%v), using in-memory sessions", err)
		sessions = session.NewMemoryStore(2 * cfg.Pipeline.HistoryMaxTurns)
	} else {
		sessions = rs
	}

	s := &Server{
		cfg:       cfg,
		store:     st,
		sessions:  sessions,
		documents: docAgent,
		newsAgent: newsAgent,
		multi:     multi,
		headlines: newsClient,
		ingestor:  ingest.NewIngestor(st, provider, cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap, cfg.Pipeline.EmbeddingDim),
		telemetry: tele,
		logger:    log.New(log.Writer(), "[SERVER] ", log.LstdFlags),
	}
	s.echo = s.buildEcho()
	return s, nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))
	if s.cfg.General.Debug || s.cfg.General.LogLevel == "debug" {
		e.Debug = true
		e.Use(middleware.Logger())
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/query/documents", s.handleDocumentQuery)
	api.POST("/query/news", s.handleNewsQuery)
	api.POST("/query/combined", s.handleCombinedQuery)
	api.GET("/news/headlines", s.handleHeadlines)
	api.POST("/ingest/text", s.handleIngestText)
	api.POST("/ingest/url", s.handleIngestURL)
	api.GET("/documents", s.handleListDocuments)
	api.DELETE("/documents/:name", s.handleDeleteDocument)
	api.GET("/stats", s.handleStats)
	api.DELETE("/sessions/:id", s.handleClearSession)

	return e
}

// Start serves the API on addr, blocking until the server stops.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = fmt.Sprintf(":%d", s.cfg.Server.Port)
	}
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown stops the HTTP server and closes the evidence store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.telemetry.LogSummary()
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	return s.store.Close()
}

// Run is the serve entrypoint used by the CLI: load config, apply
// migrations, wire the server and listen until interrupted.
func Run(addr string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		log.Printf("[SERVER] migrations: %v", err)
	}

	s, err := New(context.Background(), cfg)
	if err != nil {
		return err
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		grace := cfg.General.DefaultTimeout
		if grace <= 0 {
			grace = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			log.Printf("[SERVER] shutdown: %v", err)
		}
	}()

	if err := s.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
