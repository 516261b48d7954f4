package cleaner

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/purgedom/kit"
)

// Router returns the HTTP command channel:
//
//	GET  /health
//	GET  /pages
//	POST /pages/{id}/commands   {"type": "...", "enabled": bool}
//
// A recognised command answers 200 with the mode state, an unrecognised one
// 204, and a page without a live context 503 {"error":"unavailable"}.
func Router(ctrl Controller, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	command := kit.Logging(logger, "command")(commandEndpoint(ctrl))
	pages := kit.Logging(logger, "pages")(pagesEndpoint(ctrl))

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, apiHeaders)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/pages", func(w http.ResponseWriter, r *http.Request) {
		resp, err := pages(requestContext(r), nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/pages/{id}/commands", func(w http.ResponseWriter, r *http.Request) {
		req := &commandRequest{PageID: chi.URLParam(r, "id")}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req.Command); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := command(requestContext(r), req)
		switch {
		case errors.Is(err, ErrUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "unavailable"})
		case err != nil:
			writeError(w, http.StatusInternalServerError, err)
		case resp == nil:
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusOK, resp)
		}
	})

	return r
}

// apiHeaders marks every response as uncacheable JSON that must not be
// sniffed, framed or allowed to load anything.
func apiHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func requestContext(r *http.Request) context.Context {
	ctx := kit.WithTransport(r.Context(), "http")
	return kit.WithRequestID(ctx, middleware.GetReqID(ctx))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
