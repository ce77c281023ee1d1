// Package api is the command intake HTTP surface of a serving context.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/roach88/fieldsync/internal/crew"
	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/reminder"
)

// Server routes HTTP requests to the engine.
type Server struct {
	runner engine.Submitter
	now    func() time.Time
}

// New creates a server submitting through runner.
func New(runner engine.Submitter, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	return &Server{runner: runner, now: now}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), cors.Default())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/commands", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"commands": engine.CommandNames()})
	})
	router.POST("/commands/:name", s.submit)
	router.GET("/collections/:name", s.collection)
	router.GET("/crew/:name/notifications", s.notifications)
	router.GET("/crew/:name/schedule", s.schedule)
	router.GET("/reminders", s.reminders)
	return router
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *Server) submit(c *gin.Context) {
	name := c.Param("name")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd, err := engine.DecodeCommand(name, body)
	if err != nil {
		s.fail(c, err)
		return
	}

	out, err := s.runner.Submit(c.Request.Context(), cmd)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// fail maps err to a status code.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case engine.IsUnknownCommand(err):
		status = http.StatusNotFound
	case engine.IsInvalidCommand(err):
		status = http.StatusBadRequest
	case engine.IsNotFound(err), engine.IsDuplicate(err):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrStopped):
		status = http.StatusServiceUnavailable
	}

	reply := gin.H{"error": err.Error()}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		reply["code"] = re.Code
		if re.Collection != "" {
			reply["collection"] = re.Collection
		}
		if len(re.Details) > 0 {
			reply["details"] = re.Details
		}
	}
	if status == http.StatusInternalServerError {
		slog.Error("command failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, reply)
}

func (s *Server) collection(c *gin.Context) {
	col, ok := domain.ParseCollection(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection " + c.Param("name")})
		return
	}
	st, err := s.runner.State(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := st.Encode(col)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) notifications(c *gin.Context) {
	st, err := s.runner.State(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	unread := crew.Unread(st.Notifications, c.Param("name"))
	if unread == nil {
		unread = []domain.CrewNotification{}
	}
	c.JSON(http.StatusOK, unread)
}

func (s *Server) schedule(c *gin.Context) {
	start := s.now()
	if week := c.Query("week"); week != "" {
		t, err := domain.ParseDay(week)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		start = t
	}
	st, err := s.runner.State(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, crew.WeekSchedule(c.Param("name"), start, st.Jobs, st.Appointments))
}

func (s *Server) reminders(c *gin.Context) {
	st, err := s.runner.State(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	due := reminder.Due(st.Jobs, st.Customers, st.DismissedReminders, s.now())
	if due == nil {
		due = []reminder.Reminder{}
	}
	c.JSON(http.StatusOK, due)
}
