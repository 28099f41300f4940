package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"github.com/alvinkenyagah/hope-connect-server/internal/domain"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/access"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/admin"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/appointments"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/assessments"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/assignment"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/auth"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/caseload"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/chat"
	"github.com/alvinkenyagah/hope-connect-server/internal/service/notes"
	"github.com/alvinkenyagah/hope-connect-server/internal/ws"
)

// Services groups the domain services exposed over HTTP.
type Services struct {
	Auth         auth.Service
	Access       access.Engine
	Chat         chat.Service
	Assignment   assignment.Service
	Admin        admin.Service
	Caseload     caseload.Service
	Notes        notes.Service
	Appointments appointments.Service
	Assessments  assessments.Service
}

// Options tunes transport behaviour.
type Options struct {
	Limiter           RateLimiter
	DBHealth          func(context.Context) error
	AllowedOrigins    []string
	Hub               *ws.Hub
	WSSendBuffer      int
	WSMaxMessageBytes int64
	// DBTimeout bounds the store work of one request or one realtime event. Zero disables it.
	DBTimeout time.Duration
	// RealtimeContext bounds realtime connections; cancelling it closes them.
	RealtimeContext context.Context
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	svc       Services
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	limiter   RateLimiter
	origins   []string
	dbHealth  func(context.Context) error
	rtCtx     context.Context
	wsBuffer  int
	wsMax     int64
	dbTimeout time.Duration

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, svc Services, opts Options) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		svc:       svc,
		hub:       opts.Hub,
		limiter:   opts.Limiter,
		origins:   normalizeOrigins(opts.AllowedOrigins),
		dbHealth:  opts.DBHealth,
		rtCtx:     opts.RealtimeContext,
		wsBuffer:  opts.WSSendBuffer,
		wsMax:     opts.WSMaxMessageBytes,
		dbTimeout: opts.DBTimeout,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.hub == nil {
		r.hub = ws.NewHub(logger)
	}
	if r.rtCtx == nil {
		r.rtCtx = context.Background()
	}
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     r.checkOrigin,
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the router wrapped with CORS for the configured client origins.
func (r *Router) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   r.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler(r)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
	untrackHub(r.hub)
}

func (r *Router) register() {
	victim, counselor, adminRole := domain.RoleVictim, domain.RoleCounselor, domain.RoleAdmin

	r.mux.HandleFunc("GET /healthz", r.audit(r.handleHealthz))
	r.mux.Handle("GET /metrics", metricsHandler())
	r.mux.HandleFunc("GET /ws", r.audit(r.withRateLimit("ws", rateLimitWebsocket, rateWindowRealtime, rateLimitKeyIP, r.handleRealtime)))

	r.mux.HandleFunc("POST /api/auth/register", r.audit(r.withRateLimit("auth_register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("POST /api/auth/login", r.audit(r.withRateLimit("auth_login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("GET /api/auth/me", r.audit(r.handlerAuthRate("auth_me", rateLimitUserRead, rateWindowDefault, r.handleMe)))

	r.mux.HandleFunc("GET /api/assignments/my-counselor", r.audit(r.handlerAuthRate("assignments_mine", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleMyCounselor, victim))))
	r.mux.HandleFunc("PUT /api/assignments/{victimId}", r.audit(r.handlerAuthRate("assignments_update", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleAssignmentUpdate, adminRole))))

	r.mux.HandleFunc("POST /api/admin/counsellor", r.audit(r.handlerAuthRate("admin_add_counselor", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleAddCounselor, adminRole))))
	r.mux.HandleFunc("POST /api/admin/counselor", r.audit(r.handlerAuthRate("admin_add_counselor", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleAddCounselor, adminRole))))
	r.mux.HandleFunc("GET /api/admin/users", r.audit(r.handlerAuthRate("admin_users", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleListUsers, adminRole))))
	r.mux.HandleFunc("PATCH /api/admin/users/{id}/status", r.audit(r.handlerAuthRate("admin_user_status", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleUserStatus, adminRole))))
	r.mux.HandleFunc("POST /api/admin/assign-counselor", r.audit(r.handlerAuthRate("admin_assign", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleAdminAssign, adminRole))))
	r.mux.HandleFunc("GET /api/admin/assigned-victims/{counselorId}", r.audit(r.handlerAuthRate("admin_caseload", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleAssignedVictims, adminRole))))

	r.mux.HandleFunc("GET /api/counselor/my-victims", r.audit(r.handlerAuthRate("counselor_victims", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleMyVictims, counselor))))
	r.mux.HandleFunc("GET /api/counselor/checkin-summary", r.audit(r.handlerAuthRate("counselor_checkins", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleCheckinSummary, counselor))))

	r.mux.HandleFunc("GET /api/chat/{userId}/{otherId}", r.audit(r.handlerAuthRate("chat_history", rateLimitUserRead, rateWindowDefault, r.handleChatHistory)))

	r.mux.HandleFunc("POST /api/notes", r.audit(r.handlerAuthRate("notes_create", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleCreateNote, counselor))))
	r.mux.HandleFunc("GET /api/notes/victim/{victimId}", r.audit(r.handlerAuthRate("notes_list", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleListNotes, counselor, adminRole))))
	r.mux.HandleFunc("PUT /api/notes/{id}", r.audit(r.handlerAuthRate("notes_update", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleUpdateNote, counselor))))
	r.mux.HandleFunc("DELETE /api/notes/{id}", r.audit(r.handlerAuthRate("notes_delete", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleDeleteNote, counselor))))

	r.mux.HandleFunc("POST /api/appointments", r.audit(r.handlerAuthRate("appointments_book", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleBookAppointment, victim))))
	r.mux.HandleFunc("GET /api/appointments", r.audit(r.handlerAuthRate("appointments_list", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleListAppointments, victim, counselor))))
	r.mux.HandleFunc("PUT /api/appointments/{id}", r.audit(r.handlerAuthRate("appointments_update", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleUpdateAppointment, victim, counselor))))

	r.mux.HandleFunc("POST /api/assessments", r.audit(r.handlerAuthRate("assessments_submit", rateLimitUserWrite, rateWindowDefault, r.requireRole(r.handleSubmitAssessment, victim))))
	r.mux.HandleFunc("GET /api/assessments", r.audit(r.handlerAuthRate("assessments_mine", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleMyAssessments, victim))))
	r.mux.HandleFunc("GET /api/assessments/user/{id}", r.audit(r.handlerAuthRate("assessments_user", rateLimitUserRead, rateWindowDefault, r.requireRole(r.handleUserAssessments, counselor, adminRole))))

	r.mux.HandleFunc("/", r.audit(r.notFound))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			r.logger.Error("database health check failed", "error", err)
			status = "degraded"
			components["database"] = map[string]any{"status": "down"}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	components["realtime"] = map[string]any{"connections": r.hub.Connections()}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		if r.dbTimeout > 0 {
			ctx, cancel := context.WithTimeout(req.Context(), r.dbTimeout)
			defer cancel()
			req = req.WithContext(ctx)
		}
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		route := req.Pattern
		if route == "" || route == "/" {
			route = "unmatched"
		}
		r.recordRequestMetrics(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			fields = append(fields, "user_id", info.UserID, "role", string(info.Role))
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the websocket upgrader take over the connection; the status is recorded as 101.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		sr.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func (r *Router) checkOrigin(req *http.Request) bool {
	origin := strings.TrimSpace(req.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	return slices.Contains(r.origins, "*") || slices.Contains(r.origins, strings.TrimRight(origin, "/"))
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (r *Router) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
