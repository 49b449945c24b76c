// Package web exposes the calendar commands as a JSON API for the calendar
// widget front end.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kongming/internal/calendar"
	"kongming/internal/ics"
	"kongming/internal/models"
)

const sessionCookie = "kongming_session"

// ReminderScanner runs one reminder pass.
type ReminderScanner interface {
	Scan(ctx context.Context, now time.Time) (int, error)
}

// Server holds the HTTP handlers.
type Server struct {
	svc      *calendar.Service
	sessions *calendar.SessionStore
	reminder ReminderScanner
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

// Options configures optional parts of the server.
type Options struct {
	Reminder ReminderScanner // run synchronously on every calendar render when set
	Location *time.Location
	Now      func() time.Time
}

// NewServer creates a Server.
func NewServer(logger *slog.Logger, svc *calendar.Service, sessions *calendar.SessionStore, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		svc:      svc,
		sessions: sessions,
		reminder: opts.Reminder,
		logger:   logger,
		loc:      opts.Location,
		now:      opts.Now,
	}
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	s.Register(r)
	return r
}

// Register mounts the routes on r.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/healthz", s.health)
	r.GET("/calendar.ics", s.exportICS)

	api := r.Group("/api", s.session())
	api.GET("/calendar", s.view)
	api.PUT("/calendar/filter", s.filter)

	api.POST("/events", s.create)
	api.GET("/events/:id", s.get)
	api.PUT("/events/:id", s.update)
	api.DELETE("/events/:id", s.remove)
	api.POST("/events/:id/edit", s.edit)
	api.GET("/events/:id/detail", s.detail)

	api.GET("/managers", s.listManagers)
	api.POST("/managers", s.addManager)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server.", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("access",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// session loads the caller's State. Callers without a stored session get
// a fresh id and the initial state; the session is only stored once its
// state moves away from the initial one.
func (s *Server) session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		st, ok := s.sessions.Get(id)
		if err != nil || !ok {
			id = uuid.NewString()
			st = s.svc.NewState()
			c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
		}
		c.Set("session_id", id)
		c.Set("session_stored", ok && err == nil)
		c.Set("state", st)
		c.Next()
	}
}

func (s *Server) save(c *gin.Context, st calendar.State) {
	if !c.GetBool("session_stored") && st.Equal(s.svc.NewState()) {
		return
	}
	s.sessions.Set(c.GetString("session_id"), st)
}

func (s *Server) state(c *gin.Context) calendar.State {
	st, _ := c.MustGet("state").(calendar.State)
	return st
}

func (s *Server) respond(c *gin.Context, v calendar.View) {
	s.save(c, v.State)
	Ok(c, v, nil)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) view(c *gin.Context) {
	ctx := c.Request.Context()
	if s.reminder != nil {
		if _, err := s.reminder.Scan(ctx, s.now()); err != nil {
			fail(c, err)
			return
		}
	}
	v, err := s.svc.View(ctx, s.state(c))
	if err != nil {
		fail(c, err)
		return
	}
	s.respond(c, v)
}

type filterRequest struct {
	Selected []string `json:"selected"`
}

func (s *Server) filter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	v, err := s.svc.Select(c.Request.Context(), s.state(c), req.Selected)
	if err != nil {
		fail(c, err)
		return
	}
	s.respond(c, v)
}

func (s *Server) create(c *gin.Context) {
	f, ok := bindFields(c)
	if !ok {
		return
	}
	v, err := s.svc.Create(c.Request.Context(), s.state(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	s.respond(c, v)
}

func (s *Server) get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ev, err := s.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, toEventDTO(ev), nil)
}

func (s *Server) edit(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	v, ev, err := s.svc.Edit(c.Request.Context(), s.state(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	s.save(c, v.State)
	Ok(c, v, map[string]any{"event": toEventDTO(ev)})
}

func (s *Server) update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	f, ok := bindFields(c)
	if !ok {
		return
	}
	v, err := s.svc.Update(c.Request.Context(), s.state(c), id, f)
	if err != nil {
		fail(c, err)
		return
	}
	s.respond(c, v)
}

func (s *Server) remove(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	v, err := s.svc.Delete(c.Request.Context(), s.state(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	s.respond(c, v)
}

func (s *Server) detail(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	d, err := s.svc.Detail(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, d, nil)
}

type managerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type managerDTO struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) listManagers(c *gin.Context) {
	list, err := s.svc.Managers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]managerDTO, 0, len(list))
	for _, m := range list {
		out = append(out, managerDTO{Name: m.Name, Email: m.Email, CreatedAt: models.FormatTimestamp(m.CreatedAt)})
	}
	Ok(c, out, nil)
}

func (s *Server) addManager(c *gin.Context) {
	var req managerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	m, err := s.svc.RegisterManager(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, managerDTO{Name: m.Name, Email: m.Email, CreatedAt: models.FormatTimestamp(m.CreatedAt)}, nil)
}

func (s *Server) exportICS(c *gin.Context) {
	events, err := s.svc.Events(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Status(http.StatusOK)
	if err := ics.Write(c.Writer, events, s.svc.Facets().Name, s.loc, s.now()); err != nil {
		s.logger.Error("Failed to write calendar export", "error", err)
	}
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		Error(c, http.StatusBadRequest, "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
