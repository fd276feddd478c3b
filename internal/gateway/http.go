package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/minwoo/labpilot/internal/registry"
	"github.com/minwoo/labpilot/internal/store"
)

// HTTPGateway is the REST surface: one query operation plus a few
// operational endpoints (service listing, descriptor reload, history,
// health).
type HTTPGateway struct {
	Echo     *echo.Echo
	Handler  QueryHandler
	Registry *registry.Registry
	History  *store.HistoryStore
	Reload   func() error
	listen   string
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Answer string `json:"answer"`
}

func NewHTTPGateway(listen string, handler QueryHandler, reg *registry.Registry, history *store.HistoryStore, reload func() error) *HTTPGateway {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	g := &HTTPGateway{
		Echo:     e,
		Handler:  handler,
		Registry: reg,
		History:  history,
		Reload:   reload,
		listen:   listen,
	}

	e.POST("/api/query", g.handleQuery)
	e.GET("/api/services", g.handleServices)
	e.POST("/api/reload", g.handleReload)
	e.GET("/api/history", g.handleHistory)
	e.GET("/healthz", g.handleHealthz)

	return g
}

func (g *HTTPGateway) Start() error {
	log.Printf("HTTP gateway listening on %s", g.listen)
	err := g.Echo.Start(g.listen)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (g *HTTPGateway) Stop(ctx context.Context) error {
	return g.Echo.Shutdown(ctx)
}

func (g *HTTPGateway) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	answer, err := g.Handler.HandleQuery(c.Request().Context(), req.Query)
	if err != nil {
		// Invariant violations are the only hard errors the core raises.
		log.Printf("Internal error handling query: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, queryResponse{
		RunID:  answer.RunID,
		Status: string(answer.Status),
		Answer: answer.Text,
	})
}

type serviceSummary struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Role        string   `json:"role,omitempty"`
	UseWhen     []string `json:"use_when"`
	Enabled     bool     `json:"enabled"`
}

func (g *HTTPGateway) handleServices(c echo.Context) error {
	var out []serviceSummary
	for _, svc := range g.Registry.All() {
		out = append(out, serviceSummary{
			Key:         svc.Key,
			Name:        svc.Name,
			Description: svc.Description,
			Role:        string(svc.Role),
			UseWhen:     svc.UseWhen,
			Enabled:     svc.Enabled,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (g *HTTPGateway) handleReload(c echo.Context) error {
	if g.Reload == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "reload not configured"})
	}
	if err := g.Reload(); err != nil {
		// The previous descriptor set stays active on a failed reload.
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reloaded"})
}

func (g *HTTPGateway) handleHistory(c echo.Context) error {
	if g.History == nil {
		return c.JSON(http.StatusOK, []store.RequestRecord{})
	}
	records, err := g.History.RecentRequests(20)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read history"})
	}
	if records == nil {
		records = []store.RequestRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (g *HTTPGateway) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
