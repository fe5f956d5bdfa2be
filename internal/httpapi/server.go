package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/metrics"
	"github.com/ofeng1/datathon/internal/retrieval"
	"github.com/ofeng1/datathon/internal/session"
	"github.com/ofeng1/datathon/internal/stats"
)

const maxBody = 1 << 20

// #region deps

// Engine is the read-only engine surface the API needs.
type Engine interface {
	Status() engine.Status
	Stats() *stats.Document
	ParseForm(text string) (clinical.Extraction, string)
}

// Sessions runs chat turns.
type Sessions interface {
	Turn(ctx context.Context, sessionID, message string, merge map[string]any) (session.Result, error)
}

// #endregion deps

// #region server

// Server exposes the engine over HTTP.
type Server struct {
	engine   Engine
	sessions Sessions
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer wires the handlers.
func NewServer(e Engine, s Sessions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   e,
		sessions: s,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "http"),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.health)
	r.Post("/chat", s.chat)
	r.Get("/stats", s.stats)
	r.Post("/parse-ed-document", s.parseDocument)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// observe logs and counts every request by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.RecordHTTP(route, ww.Status())
		s.logger.Debug("request", "method", r.Method, "route", route, "status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// #endregion server

// #region handlers

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Status()
	resp := HealthResponse{
		Status:         "ok",
		ModelsLoaded:   st.ModelsLoaded,
		RagIndexLoaded: st.IndexBackend != "" && st.IndexBackend != retrieval.BackendNone,
	}
	if len(st.ModelsLoaded) == 0 {
		resp.Status = "degraded"
	}
	if resp.ModelsLoaded == nil {
		resp.ModelsLoaded = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	res, err := s.sessions.Turn(r.Context(), req.SessionID, req.Message, req.MergeState)
	if err != nil {
		if errors.Is(err, session.ErrInvalidMerge) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("chat turn failed", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "chat turn failed")
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{SessionID: res.SessionID, Reply: res.Turn.Reply})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.engine.Stats().JSON())
}

// parseDocument accepts either {"text": ...} JSON or a plain-text body.
func (s *Server) parseDocument(w http.ResponseWriter, r *http.Request) {
	var text string
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var req ParseEdDocumentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
			return
		}
		text = req.Text
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}
		text = string(body)
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusUnprocessableEntity, "document text is empty")
		return
	}

	parsed, summary := s.engine.ParseForm(text)
	resp := ParseEdDocumentResponse{Parsed: make(map[string]float64, len(parsed)), Summary: summary}
	for f, v := range parsed {
		resp.Parsed[string(f)] = v
	}
	writeJSON(w, http.StatusOK, resp)
}

// #endregion handlers

// #region helpers

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	return dec.Decode(dst)
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+": failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorResponse{Detail: detail})
}

// #endregion helpers
