package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/config"
	"github.com/lanify/monitor/internal/store"
)

// ErrRateLimited is returned by Ingest when the ingest limiter is exhausted.
var ErrRateLimited = errors.New("ingest rate exceeded")

// ValidationError lists the record fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	return "invalid alert: " + strings.Join(names, ", ")
}

type Server struct {
	cfg            config.ServerConfig
	store          store.Store
	broadcaster    *Broadcaster
	metrics        *Metrics
	limiter        *rate.Limiter
	validate       *validator.Validate
	log            logrus.FieldLogger
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool

	now   func() time.Time
	newID func() string
}

func NewServer(cfg config.ServerConfig, st store.Store, b *Broadcaster, m *Metrics, log logrus.FieldLogger) *Server {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if m == nil {
		m = NewMetrics()
	}
	if b == nil {
		b = NewBroadcaster(cfg.Backlog, m, log)
	}
	limit := rate.Inf
	if cfg.IngestRate > 0 {
		limit = rate.Limit(cfg.IngestRate)
	}
	burst := cfg.IngestBurst
	if burst <= 0 {
		burst = 1
	}
	s := &Server{
		cfg:            cfg,
		store:          st,
		broadcaster:    b,
		metrics:        m,
		limiter:        rate.NewLimiter(limit, burst),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		log:            log,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		now:            func() time.Time { return time.Now().UTC() },
		newID:          func() string { return uuid.NewString() },
	}

	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	return s
}

func (s *Server) Broadcaster() *Broadcaster { return s.broadcaster }

// Handler returns the routed HTTP handler. /health and /metrics are open;
// everything else requires the configured token.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /ws", s.requireAuth(s.handleWS))
	mux.HandleFunc("GET /api/handshake", s.requireAuth(s.handleHandshake))
	mux.HandleFunc("GET /api/alerts/poll", s.requireAuth(s.handlePoll))
	mux.HandleFunc("GET /api/alerts", s.requireAuth(s.handleListAlerts))
	mux.HandleFunc("POST /api/alerts", s.requireAuth(s.handleCreateAlert))
	mux.HandleFunc("GET /api/alerts/{id}", s.requireAuth(s.handleGetAlert))
	mux.HandleFunc("PUT /api/alerts/{id}", s.requireAuth(s.handleUpdateAlert))
	mux.HandleFunc("DELETE /api/alerts/{id}", s.requireAuth(s.handleDeleteAlert))
	mux.HandleFunc("GET /api/safety-report/{vehicle_id}", s.requireAuth(s.handleSafetyReport))
	mux.HandleFunc("GET /api/safety-reports", s.requireAuth(s.handleSafetyReports))
	return securityHeaders(mux)
}

// Ingest validates rec, fills in its ID and timestamp when missing, stores it
// and publishes it to every monitoring client.
func (s *Server) Ingest(ctx context.Context, rec *alert.Record) (*alert.Record, error) {
	if !s.limiter.Allow() {
		s.metrics.Rejected.WithLabelValues("rate").Inc()
		return nil, ErrRateLimited
	}
	if err := s.check(rec); err != nil {
		s.metrics.Rejected.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save alert: %w", err)
	}
	s.metrics.Ingested.WithLabelValues(string(rec.Severity)).Inc()

	env, err := s.broadcaster.Publish(rec.Event())
	if err != nil {
		return rec, fmt.Errorf("publish alert: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"id":       rec.ID,
		"vehicle":  rec.VehicleID,
		"severity": rec.Severity,
		"seq":      env.Seq,
	}).Info("alert ingested")
	return rec, nil
}

func (s *Server) check(rec *alert.Record) error {
	err := s.validate.Struct(rec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonName(fe.Field())] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

var fieldNames = map[string]string{
	"DashcamID":     "dashcam_id",
	"VehicleID":     "vehicle_id",
	"Severity":      "severity",
	"Latitude":      "latitude",
	"Longitude":     "longitude",
	"LaneDeviation": "lane_deviation",
}

func jsonName(field string) string {
	if n, ok := fieldNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.broadcaster.ClientCount(),
		"seq":     s.broadcaster.Seq(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("ws upgrade failed")
		return
	}

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Info("monitoring client connected")
	c := s.broadcaster.AddClient(conn)

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Info("monitoring client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHandshake(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, alert.Handshake{
		Seq:        s.broadcaster.Seq(),
		Transports: []string{"websocket", "polling"},
	})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var after uint64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after")
			return
		}
		after = n
	}
	wait := s.cfg.PollWait
	if v := q.Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "invalid wait")
			return
		}
		if s.cfg.PollWait <= 0 || d < s.cfg.PollWait {
			wait = d
		}
	}

	s.metrics.Polls.Inc()
	envs := s.broadcaster.Since(r.Context(), after, wait)
	if envs == nil {
		envs = []alert.Envelope{}
	}
	writeJSON(w, http.StatusOK, envs)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context(), store.Filter{VehicleID: r.URL.Query().Get("vehicle_id")})
	if err != nil {
		s.internalError(w, "list alerts", err)
		return
	}
	if recs == nil {
		recs = []*alert.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var rec alert.Record
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec.ID = ""

	out, err := s.Ingest(r.Context(), &rec)
	if err != nil && out == nil {
		s.ingestError(w, err)
		return
	}
	if err != nil {
		s.log.WithError(err).Warn("alert stored but not published")
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "get alert", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "get alert", err)
		return
	}

	var rec alert.Record
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec.ID = id
	if rec.Timestamp.IsZero() {
		rec.Timestamp = existing.Timestamp
	}
	if err := s.check(&rec); err != nil {
		s.ingestError(w, err)
		return
	}
	if err := s.store.Save(r.Context(), &rec); err != nil {
		s.internalError(w, "save alert", err)
		return
	}
	writeJSON(w, http.StatusOK, &rec)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "delete alert", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSafetyReport(w http.ResponseWriter, r *http.Request) {
	vehicle := r.PathValue("vehicle_id")
	recs, err := s.store.List(r.Context(), store.Filter{})
	if err != nil {
		s.internalError(w, "list alerts", err)
		return
	}
	var own []*alert.Record
	for _, rec := range recs {
		if rec.VehicleID == vehicle {
			own = append(own, rec)
		}
	}
	if len(own) == 0 {
		writeError(w, http.StatusNotFound, "no alerts for vehicle")
		return
	}
	writeJSON(w, http.StatusOK, alert.BuildReport(vehicle, own))
}

func (s *Server) handleSafetyReports(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context(), store.Filter{})
	if err != nil {
		s.internalError(w, "list alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, alert.BuildFleetReports(recs))
}

func (s *Server) ingestError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": err.Error(),
			"errors":  verr.Fields,
		})
	default:
		s.internalError(w, "ingest alert", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.WithError(err).Error(op)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorize(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) authorize(r *http.Request) bool {
	token := s.cfg.Token
	if token == "" {
		return true
	}

	if r.URL.Query().Get("token") == token {
		return true
	}

	if r.Header.Get("X-Lanify-Token") == token {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == token {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully. pollWait widens the write timeout so long-polls can complete.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, pollWait time.Duration, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      pollWait + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		// Cancelling ctx also releases held long-polls.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("feed server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
