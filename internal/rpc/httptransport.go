// HTTP transport: a thin gin-based POST /tools/:name endpoint, grounded
// on the teacher's apps/edge-mcp/cmd/server/main.go bootstrap. JSON-RPC
// wire framing itself is out of scope (spec §1); this decodes one call's
// argument object and hands it to Dispatcher.Call.
package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
)

// HTTPServer wraps a gin.Engine exposing the tool catalog over HTTP.
type HTTPServer struct {
	engine     *gin.Engine
	dispatcher *Dispatcher
}

// NewHTTPServer builds the gin engine and registers every route.
func NewHTTPServer(d *Dispatcher) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &HTTPServer{engine: engine, dispatcher: d}
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/tools", s.handleListTools)
	engine.POST("/tools/:name", s.handleToolCall)
	engine.GET("/metrics", s.handleMetrics)
	return s
}

func (s *HTTPServer) Handler() http.Handler { return s.engine }

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *HTTPServer) handleListTools(c *gin.Context) {
	defs := s.dispatcher.List()
	out := make([]gin.H, 0, len(defs))
	for _, d := range defs {
		out = append(out, gin.H{"name": d.Name, "description": d.Description, "category": d.Category})
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

func (s *HTTPServer) handleMetrics(c *gin.Context) {
	if s.dispatcher.deps.Metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	promhttp.HandlerFor(s.dispatcher.deps.Metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}

func (s *HTTPServer) handleToolCall(c *gin.Context) {
	name := c.Param("name")

	var args Args
	if c.Request.ContentLength != 0 {
		if err := json.NewDecoder(c.Request.Body).Decode(&args); err != nil {
			writeError(c, apperrors.Newf(apperrors.ValidationInvalidInput, "malformed JSON body: %v", err))
			return
		}
	}
	if args == nil {
		args = Args{}
	}

	result, err := s.dispatcher.Call(c.Request.Context(), name, args)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func writeError(c *gin.Context, err error) {
	env := apperrors.ToEnvelope(err)
	status := http.StatusBadRequest
	switch {
	case apperrors.Is(err, apperrors.SystemInternal), apperrors.Is(err, apperrors.SystemNotImplemented):
		status = http.StatusInternalServerError
	case apperrors.Is(err, apperrors.ResourceRateLimited):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, env)
}
