package votes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Server exposes the vote dataset over HTTP for the chatbot frontend.
type Server struct {
	fetcher *Fetcher
	pdfs    *PDFCache
}

// NewServer wires the dataset fetcher and document cache into a handler set.
func NewServer(fetcher *Fetcher, pdfs *PDFCache) *Server {
	return &Server{fetcher: fetcher, pdfs: pdfs}
}

// Router builds the chi routing tree with permissive CORS for the embedded
// chat widget.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/votes", func(api chi.Router) {
		api.Get("/upcoming", s.handleUpcoming)
		api.Get("/search", s.handleSearch)
		api.Get("/{id}", s.handleByID)
		api.Get("/{id}/documents/{kind}", s.handleDocument)
	})

	return r
}

// voteResponse pairs the record with the title in the requested language.
type voteResponse struct {
	Title string `json:"title"`
	Vote
}

func respond(votes []Vote, lang string) []voteResponse {
	out := make([]voteResponse, len(votes))
	for i, v := range votes {
		out[i] = voteResponse{Title: v.Title(lang), Vote: v}
	}
	return out
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	ds, err := s.fetcher.Fetch(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, respond(ds.Upcoming(), lang(r)))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, eris.New("votes: q parameter is required"))
		return
	}
	includeHistorical := r.URL.Query().Get("historical") != "false"

	ds, err := s.fetcher.Fetch(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, respond(ds.Search(q, includeHistorical), lang(r)))
}

func (s *Server) handleByID(w http.ResponseWriter, r *http.Request) {
	ds, err := s.fetcher.Fetch(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	v, ok := ds.ByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, eris.New("votes: vote not found"))
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{Title: v.Title(lang(r)), Vote: v})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	ds, err := s.fetcher.Fetch(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	v, ok := ds.ByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, eris.New("votes: vote not found"))
		return
	}

	kind := chi.URLParam(r, "kind")
	if _, ok := DocumentKinds[kind]; !ok {
		writeError(w, http.StatusBadRequest, eris.Errorf("votes: unknown document kind %q", kind))
		return
	}
	if !documentLanguages[lang(r)] {
		writeError(w, http.StatusBadRequest, eris.Errorf("votes: unsupported document language %q", lang(r)))
		return
	}

	data, err := s.pdfs.Document(r.Context(), v.ANR, kind, lang(r))
	switch {
	case eris.Is(err, ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func lang(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		return l
	}
	return "de"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("votes: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	zap.L().Warn("votes: request failed", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// ListenAndServe runs the HTTP server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		zap.L().Info("votes: shutting down server")
		srv.Shutdown(context.Background())
	}()

	zap.L().Info("votes: starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "votes: server listen")
	}
	return nil
}
