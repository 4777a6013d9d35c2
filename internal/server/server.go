// Package server exposes the engine's control operations over HTTP.
//
// The API mirrors what action trees can do from bindings: switch,
// toggle, unwind and cycle modes, pause and resume dispatch, and read
// a status snapshot. Every handler funnels through the engine's
// serialized queue, so external control and input events never race.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joyrig/joyrig/internal/engine"
	"github.com/joyrig/joyrig/internal/logging"
)

// Controller is the engine surface the API drives. *engine.Engine
// satisfies it.
type Controller interface {
	Status() (engine.Status, error)
	SwitchMode(name string) error
	PreviousMode() error
	UnwindMode() error
	CycleModes(targets []string) error
	ActiveMode() string
	Pause()
	Resume()
	TogglePause() bool
	Paused() bool
}

// Server serves the control API on a single listener.
type Server struct {
	ctrl   Controller
	log    *logging.Logger
	router *gin.Engine
	http   *http.Server
	ln     net.Listener
}

// New builds a Server around ctrl. A nil log discards output.
func New(ctrl Controller, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Null
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		ctrl: ctrl,
		log:  log.WithComponent("server"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests)

	router.GET("/status", s.handleStatus)
	router.POST("/mode/switch", s.handleSwitch)
	router.POST("/mode/previous", s.handlePrevious)
	router.POST("/mode/unwind", s.handleUnwind)
	router.POST("/mode/cycle", s.handleCycle)
	router.POST("/pause", s.handlePause)
	router.POST("/resume", s.handleResume)
	router.POST("/pause/toggle", s.handleTogglePause)

	s.router = router
	return s
}

// Handler returns the HTTP handler for mounting or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds addr and serves in the background. Binding errors are
// returned synchronously; serve errors after that are logged.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.log.Info("control server listening on %s", ln.Addr())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("control server: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests(c *gin.Context) {
	c.Next()
	s.log.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
}

func (s *Server) handleStatus(c *gin.Context) {
	st, err := s.ctrl.Status()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleSwitch(c *gin.Context) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode required"})
		return
	}
	if err := s.ctrl.SwitchMode(req.Mode); err != nil {
		s.fail(c, err)
		return
	}
	s.respondMode(c)
}

func (s *Server) handlePrevious(c *gin.Context) {
	if err := s.ctrl.PreviousMode(); err != nil {
		s.fail(c, err)
		return
	}
	s.respondMode(c)
}

func (s *Server) handleUnwind(c *gin.Context) {
	if err := s.ctrl.UnwindMode(); err != nil {
		s.fail(c, err)
		return
	}
	s.respondMode(c)
}

func (s *Server) handleCycle(c *gin.Context) {
	var req struct {
		Modes []string `json:"modes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Modes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "modes required"})
		return
	}
	if err := s.ctrl.CycleModes(req.Modes); err != nil {
		s.fail(c, err)
		return
	}
	s.respondMode(c)
}

func (s *Server) handlePause(c *gin.Context) {
	s.ctrl.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) handleResume(c *gin.Context) {
	s.ctrl.Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (s *Server) handleTogglePause(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"paused": s.ctrl.TogglePause()})
}

func (s *Server) respondMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"active_mode": s.ctrl.ActiveMode()})
}

// fail maps engine errors onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownMode):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrStopped):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
