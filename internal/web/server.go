package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"showmatch/internal/match"
	"showmatch/internal/service/show"
	"showmatch/pkg/showdto"
)

const sessionCookieName = "showmatch_sid"

// Server exposes the demo over HTTP: a JSON session API, a board image, a
// websocket event stream, and the embedded page driving them.
type Server struct {
	svc    *show.Service
	logger *zap.Logger
}

func NewServer(svc *show.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger}
}

func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Post("/session", s.handleCreate)
		r.Route("/session/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Post("/advance", s.handleAdvance)
			r.Post("/reset", s.handleReset)
			r.Get("/board.png", s.handleBoardPNG)
			r.Get("/ws", s.handleWS)
		})
	})
	return r
}

type createRequest struct {
	Variant   string `json:"variant"`
	Character string `json:"character"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.Body != nil {
		// an empty body means the default variant
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	variant := match.Variant(req.Variant)
	if variant == "" {
		variant = match.VariantScripted
	}

	state, err := s.svc.Create(r.Context(), variant, req.Character)
	if err != nil {
		s.writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    state.SessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	s.writeJSON(w, http.StatusCreated, state)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// handleAdvance plays the next pair. Game-level failures (finished game,
// engine without a move, bad script) come back as 200 with the session's
// error message; only missing sessions and infrastructure trouble are
// HTTP errors.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.BoardPNG(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var domainErr *showdto.DomainError
	status := http.StatusInternalServerError
	message := "internal error"
	code := showdto.CodeInternal

	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
		if domainErr.Code == showdto.CodeSessionNotFound {
			status = http.StatusNotFound
		}
	} else {
		s.logger.Error("request failed", zap.Error(err))
	}

	s.writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
