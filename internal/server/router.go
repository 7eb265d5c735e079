package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stackmind/svcup/internal/metrics"
	"github.com/stackmind/svcup/internal/supervisor"
)

// Router exposes the supervisor over HTTP for `svcup serve`.
// Endpoints:
//
//	GET  {basePath}/status           all services
//	GET  {basePath}/status?name=...  one service
//	POST {basePath}/start?name=...   name or all=1
//	POST {basePath}/stop?name=...    name or all=1
//	GET  {basePath}/healthz
//	GET  /metrics
//
// The listener binds loopback by default; there is no auth layer, this is a
// single-operator local surface.
type Router struct {
	sup      *supervisor.Supervisor
	basePath string
}

func NewRouter(sup *supervisor.Supervisor, basePath string) *Router {
	return &Router{sup: sup, basePath: sanitizeBase(basePath)}
}

// Handler returns a gin-powered http.Handler mountable in any mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, okResp{OK: true}) })
	g.GET("/metrics", gin.WrapH(metrics.Handler(nil)))
	return g
}

// NewServer runs a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, sup *supervisor.Supervisor) *http.Server {
	r := NewRouter(sup, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type resultResp struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	PID     int    `json:"pid,omitempty"`
	LogPath string `json:"log_path,omitempty"`
	Error   string `json:"error,omitempty"`
}

type bulkResp struct {
	Failed  bool         `json:"failed"`
	Results []resultResp `json:"results"`
}

func toResultResp(res supervisor.Result) resultResp {
	out := resultResp{Name: res.Name, Outcome: string(res.Outcome), PID: res.PID, LogPath: res.LogPath}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func (r *Router) handleStatus(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusOK, r.sup.StatusAll())
		return
	}
	st, err := r.sup.Status(name)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, supervisor.ErrUnknownService) {
			status = http.StatusNotFound
		}
		c.JSON(status, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleStart(c *gin.Context) {
	if c.Query("all") != "" {
		results, failed := r.sup.StartAll()
		c.JSON(http.StatusOK, bulkResp{Failed: failed, Results: toResultResps(results)})
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "name or all=1 required"})
		return
	}
	res := r.sup.Start(name)
	writeResult(c, res)
}

func (r *Router) handleStop(c *gin.Context) {
	if c.Query("all") != "" {
		results, failed := r.sup.StopAll()
		c.JSON(http.StatusOK, bulkResp{Failed: failed, Results: toResultResps(results)})
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "name or all=1 required"})
		return
	}
	res := r.sup.Stop(name)
	writeResult(c, res)
}

func writeResult(c *gin.Context, res supervisor.Result) {
	if errors.Is(res.Err, supervisor.ErrUnknownService) {
		c.JSON(http.StatusNotFound, errorResp{Error: res.Err.Error()})
		return
	}
	status := http.StatusOK
	if res.Failed() {
		status = http.StatusBadGateway
	}
	c.JSON(status, toResultResp(res))
}

func toResultResps(results []supervisor.Result) []resultResp {
	out := make([]resultResp, 0, len(results))
	for _, res := range results {
		out = append(out, toResultResp(res))
	}
	return out
}

// sanitizeBase normalizes a base path: leading slash, no trailing slash.
func sanitizeBase(bp string) string {
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}
