package httpx

import (
	"bytes"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainjob "github.com/quillscore/quillscore-api/internal/domain/job"
	"github.com/quillscore/quillscore-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Tasks       *service.TaskService
	Submissions *service.SubmissionService
	// Optional: submission-change notifier backing the status long poll.
	Notifier domainjob.Notifier
	// Optional: cap on the status long-poll window. Zero means the default.
	LongPollMax time.Duration
	// Optional: dependency probes reported by /healthz.
	DB    DependencyPinger
	Cache HealthChecker
	// Logger for handler errors (optional).
	Logger *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	taskHandlers := &TaskHandlers{Svc: services.Tasks, Logger: services.Logger}
	submissionHandlers := &SubmissionHandlers{
		Svc:         services.Submissions,
		Notifier:    services.Notifier,
		LongPollMax: services.LongPollMax,
		Validate:    newRequestValidator(),
		Logger:      services.Logger,
	}
	healthHandlers := &HealthHandlers{DB: services.DB, Cache: services.Cache}

	registerTaskRoutes(mux, taskHandlers)
	registerSubmissionRoutes(mux, submissionHandlers)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandlers.Health))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandlers.Health))

	// Wrap so bare mux 404/405 plain-text replies come back as API envelopes.
	return &apiErrorHandler{mux: mux}
}

func registerTaskRoutes(mux *http.ServeMux, h *TaskHandlers) {
	mux.HandleFunc("GET /api/tasks", h.List)
	mux.HandleFunc("GET /api/tasks/random", h.Random)
	mux.HandleFunc("GET /api/tasks/{id}", h.Get)
}

// registerSubmissionRoutes wires the submission lifecycle behind the Identity
// middleware; every submission route needs a caller.
func registerSubmissionRoutes(mux *http.ServeMux, h *SubmissionHandlers) {
	requireUser := Identity()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireUser(fn))
	}

	handle("POST /api/submissions/draft", h.SaveDraft)
	handle("POST /api/submissions/submit", h.Submit)
	handle("GET /api/submissions", h.List)
	handle("GET /api/submissions/{id}", h.Get)
	handle("GET /api/submissions/{id}/status", h.Status)
	handle("POST /api/submissions/{id}/retry", h.Retry)
}

// apiErrorHandler wraps a ServeMux and rewrites its built-in plain-text
// 404/405 responses into the API's error envelope. Responses that already
// carry a JSON body pass through untouched.
type apiErrorHandler struct {
	mux *http.ServeMux
}

// ServeHTTP implements http.Handler.
func (h *apiErrorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cw := newCaptureWriter(w)
	h.mux.ServeHTTP(cw, r)

	if strings.HasPrefix(cw.header.Get("Content-Type"), "application/json") {
		cw.flushTo(w)
		return
	}

	switch cw.status {
	case http.StatusNotFound:
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("resource not found"),
		})
	case http.StatusMethodNotAllowed:
		// ServeMux sets Allow on its own 405s; keep it for the client.
		if allow := cw.header.Get("Allow"); allow != "" {
			w.Header().Set("Allow", allow)
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusMethodNotAllowed,
			ErrCode: "method_not_allowed",
			Err:     errors.New("method not allowed"),
		})
	default:
		cw.flushTo(w)
	}
}

// captureWriter buffers headers, status and body so we can decide post-dispatch.
type captureWriter struct {
	rw     http.ResponseWriter
	header http.Header
	status int
	buf    bytes.Buffer
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{rw: w, header: make(http.Header), status: http.StatusOK}
}

func (c *captureWriter) Header() http.Header         { return c.header }
func (c *captureWriter) WriteHeader(code int)        { c.status = code }
func (c *captureWriter) Write(b []byte) (int, error) { return c.buf.Write(b) }

func (c *captureWriter) flushTo(w http.ResponseWriter) {
	for k, vs := range c.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(c.status)
	if _, err := w.Write(c.buf.Bytes()); err != nil {
		log.Printf("failed to write captured response: %v", err)
	}
}
