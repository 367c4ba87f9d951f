package liveedit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/liveedit/audit"
	"github.com/hazyhaar/liveedit/edit"
	"github.com/hazyhaar/liveedit/horosafe"
	"github.com/hazyhaar/liveedit/kit"
	"github.com/hazyhaar/liveedit/shield"
	"github.com/hazyhaar/liveedit/summarize"
)

// Routes returns the HTTP API.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(shield.HeadToGet)
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(requestContext)

	docHeaders := shield.SecurityHeaders(shield.DocumentHeaders())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
	})

	r.Route("/api", func(r chi.Router) {
		if len(s.cfg.Auth.Users) > 0 {
			r.Use(s.basicAuth)
		}
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Use(shield.MaxBody(s.cfg.MaxBodyBytes))

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(sessionContext)
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)
			r.Post("/edits", s.handleApply)
			r.Post("/undo", s.handleUndo)
			r.Get("/history", s.handleHistory)
			r.Delete("/history", s.handleClearHistory)
			r.With(docHeaders).Get("/document", s.handleDocument)
			r.With(docHeaders).Get("/report", s.handleReport)
			r.Post("/save", s.handleSave)
			r.Get("/saved", s.handleListSaved)
			r.Post("/summarize", s.handleSummarize)
			r.Get("/audit", s.handleAudit)
		})
		r.Get("/saved/{savedID}", s.handleGetSaved)
		r.Post("/classify", s.handleClassify)
	})
	return r
}

func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, middleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := horosafe.ValidateIdentifier(id); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		ctx := kit.WithSessionID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if ok {
			if hash, known := s.cfg.Auth.Users[user]; known &&
				bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil {
				next.ServeHTTP(w, r.WithContext(kit.WithUser(r.Context(), user)))
				return
			}
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="liveedit"`)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	})
}

type createSessionReq struct {
	HTML string `json:"html"`
}

func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionReq
	if !decodeBody(w, r, &req) {
		return
	}
	info, err := s.CreateSession(req.HTML)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Service) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ep.closeSession(r.Context(), &sessionReq{SessionID: chi.URLParam(r, "id")}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleApply(w http.ResponseWriter, r *http.Request) {
	var in edit.Instruction
	if !decodeBody(w, r, &in) {
		return
	}
	writeEndpointResult(w)(s.ep.apply(r.Context(), &applyReq{SessionID: chi.URLParam(r, "id"), Instruction: in}))
}

func (s *Service) handleUndo(w http.ResponseWriter, r *http.Request) {
	writeEndpointResult(w)(s.ep.undo(r.Context(), &sessionReq{SessionID: chi.URLParam(r, "id")}))
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.History(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if records == nil {
		records = []edit.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Service) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ep.clearHistory(r.Context(), &sessionReq{SessionID: chi.URLParam(r, "id")}); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Document(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, doc)
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	out, err := s.Report(chi.URLParam(r, "id"), format)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if format == FormatMarkdown || format == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	fmt.Fprint(w, out)
}

func (s *Service) handleSave(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ep.save(r.Context(), &sessionReq{SessionID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Service) handleListSaved(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ListSaved(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Service) handleGetSaved(w http.ResponseWriter, r *http.Request) {
	savedID := chi.URLParam(r, "savedID")
	if err := horosafe.ValidateIdentifier(savedID); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	doc, err := s.Saved(r.Context(), savedID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Service) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.AuditTrail(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type textReq struct {
	Text string `json:"text"`
}

func (s *Service) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req textReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		bodyError(w, err)
		return
	}
	summary, err := s.Summarize(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Service) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req textReq
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.Classify(req.Text))
}

// decodeBody decodes a JSON request body into v and answers 400 or 413 when
// it cannot.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	bodyError(w, err)
	return false
}

func bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err)
	} else {
		writeError(w, http.StatusBadRequest, err)
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSavedNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadFormat), errors.Is(err, summarize.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, summarize.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeEndpointResult sends what an edit endpoint returned: the Result with
// 200 on success or 422 on failure, or the error for an unknown session.
func writeEndpointResult(w http.ResponseWriter) func(any, error) {
	return func(resp any, err error) {
		res, ok := resp.(edit.Result)
		if !ok {
			writeError(w, statusFor(err), err)
			return
		}
		code := http.StatusOK
		if !res.Success {
			code = http.StatusUnprocessableEntity
		}
		writeJSON(w, code, res)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
