package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/osintlab/sleuth/internal/agent"
	"github.com/osintlab/sleuth/internal/session"
)

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
	DaysBack  int    `json:"days_back,omitempty"`

	// UseAgent and UseNews gate the combined path's loops. Nil means
	// enabled.
	UseAgent *bool `json:"use_agent,omitempty"`
	UseNews  *bool `json:"use_news,omitempty"`
}

func (r queryRequest) validate() error {
	if r.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	return nil
}

func (s *Server) queryOptions(c echo.Context, req queryRequest) (agent.QueryOptions, error) {
	opts := agent.QueryOptions{
		Temperature: s.cfg.LLM.Temperature,
		MaxTokens:   s.cfg.LLM.MaxTokens,
		TopK:        s.cfg.Pipeline.TopK,
		MaxResults:  s.cfg.Pipeline.MaxNewsResults,
		DaysBack:    s.cfg.Pipeline.NewsDaysBack,
		Language:    s.cfg.Sources.NewsAPI.Language,
	}
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	if req.DaysBack > 0 {
		opts.DaysBack = req.DaysBack
	}
	if req.SessionID != "" {
		turns, err := s.sessions.History(c.Request().Context(), req.SessionID)
		if err != nil {
			return opts, echo.NewHTTPError(http.StatusInternalServerError, "loading session history: "+err.Error())
		}
		opts.History = session.Messages(turns)
	}
	return opts, nil
}

// queryContext bounds a query by the configured pipeline timeout.
func (s *Server) queryContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if t := s.cfg.Pipeline.QueryTimeout; t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return ctx, func() {}
}

func (s *Server) recordTurns(c echo.Context, sessionID, query, answer string) {
	if sessionID == "" {
		return
	}
	err := s.sessions.Append(c.Request().Context(), sessionID,
		session.Turn{Role: "user", Content: query},
		session.Turn{Role: "assistant", Content: answer},
	)
	if err != nil {
		s.logger.Printf("recording session %s: %v", sessionID, err)
	}
}

func (s *Server) handleDocumentQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	opts, err := s.queryOptions(c, req)
	if err != nil {
		return err
	}

	ctx, cancel := s.queryContext(c)
	defer cancel()
	started := time.Now()
	res, err := s.documents.Query(ctx, req.Query, opts)
	observeQuery("documents", time.Since(started).Seconds(), err, res.RefinedQuery != "")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	s.recordTurns(c, req.SessionID, req.Query, res.Answer)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleNewsQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	opts, err := s.queryOptions(c, req)
	if err != nil {
		return err
	}

	ctx, cancel := s.queryContext(c)
	defer cancel()
	started := time.Now()
	res, err := s.newsAgent.Query(ctx, req.Query, opts)
	observeQuery("news", time.Since(started).Seconds(), err, res.RefinedQuery != "")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	s.recordTurns(c, req.SessionID, req.Query, res.Answer)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleCombinedQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	opts, err := s.queryOptions(c, req)
	if err != nil {
		return err
	}
	if req.UseAgent != nil && !*req.UseAgent {
		opts.SkipDocuments = true
	}
	if req.UseNews != nil && !*req.UseNews {
		opts.SkipNews = true
	}
	if opts.SkipDocuments && opts.SkipNews {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one of use_agent and use_news must be enabled")
	}

	ctx, cancel := s.queryContext(c)
	defer cancel()
	started := time.Now()
	res, err := s.multi.Query(ctx, req.Query, opts)
	refined := res.DocumentRefinedQuery != "" || res.NewsRefinedQuery != ""
	observeQuery("combined", time.Since(started).Seconds(), err, refined)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	s.recordTurns(c, req.SessionID, req.Query, res.Answer)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleHeadlines(c echo.Context) error {
	category := c.QueryParam("category")
	country := c.QueryParam("country")
	maxResults := 0
	if raw := c.QueryParam("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "max must be a positive integer")
		}
		maxResults = n
	}

	articles, err := s.headlines.TopHeadlines(c.Request().Context(), category, country, maxResults)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"articles": articles})
}

type ingestTextRequest struct {
	Name     string            `json:"name"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleIngestText(c echo.Context) error {
	var req ingestTextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and text are required")
	}

	count, err := s.ingestor.IngestText(c.Request().Context(), req.Name, req.Text, req.Metadata)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	ingestedChunks.Add(float64(count))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"document": req.Name,
		"chunks":   count,
	})
}

type ingestURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleIngestURL(c echo.Context) error {
	var req ingestURLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	name, count, err := s.ingestor.IngestURL(c.Request().Context(), req.URL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	ingestedChunks.Add(float64(count))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"document": name,
		"url":      req.URL,
		"chunks":   count,
	})
}

func (s *Server) handleListDocuments(c echo.Context) error {
	docs, err := s.store.Documents(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	name := c.Param("name")
	removed, err := s.store.DeleteDocument(c.Request().Context(), name)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if removed == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "document not found: "+name)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"document": name,
		"removed":  removed,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := map[string]interface{}{
		"total_chunks":    stats.TotalChunks,
		"total_documents": stats.TotalDocuments,
		"metrics":         s.telemetry.GetMetrics(),
		"costs":           s.telemetry.GetCosts(),
	}
	if stats.TotalDocuments == 0 {
		resp["note"] = "No documents in the collection. Upload documents via /api/ingest/text or /api/ingest/url before querying."
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleClearSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.sessions.Clear(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"session_id": id, "status": "cleared"})
}
