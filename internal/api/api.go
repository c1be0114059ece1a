package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nselftv/player/internal/session"
)

type ApiManagerCtx struct {
	logger  zerolog.Logger
	session *session.ManagerCtx
}

func New(session *session.ManagerCtx) *ApiManagerCtx {
	return &ApiManagerCtx{
		logger:  log.With().Str("module", "api").Logger(),
		session: session,
	}
}

func (a *ApiManagerCtx) Mount(r *chi.Mux) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		//nolint
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api", func(r chi.Router) {
		// read side: snapshots only, never a control input
		r.Get("/state", a.state)
		r.Get("/level", a.level)
		r.Get("/levels", a.levels)
		r.Get("/history", a.history)

		// write side: drives the session for testing and diagnostics
		r.Post("/seek/start", a.seekStart)
		r.Post("/seek/end", a.seekEnd)
		r.Post("/buffer", a.buffer)
	})
}

func (a *ApiManagerCtx) state(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.session.State())
}

func (a *ApiManagerCtx) level(w http.ResponseWriter, r *http.Request) {
	level := a.session.CurrentLevel()

	response := struct {
		Level int    `json:"level"`
		Name  string `json:"name,omitempty"`
	}{Level: level}

	levels := a.session.Levels()
	if level >= 0 && level < len(levels) {
		response.Name = levels[level].Name
	}

	a.writeJSON(w, response)
}

func (a *ApiManagerCtx) levels(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.session.Levels())
}

func (a *ApiManagerCtx) history(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.session.History())
}

func (a *ApiManagerCtx) seekStart(w http.ResponseWriter, r *http.Request) {
	a.session.StartSeek()
	w.WriteHeader(http.StatusNoContent)
}

func (a *ApiManagerCtx) seekEnd(w http.ResponseWriter, r *http.Request) {
	a.session.EndSeek()
	w.WriteHeader(http.StatusNoContent)
}

func (a *ApiManagerCtx) buffer(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Buffer float64 `json:"buffer"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		a.logger.Warn().Err(err).Msg("invalid buffer override")
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	a.session.SetBuffer(request.Buffer)
	w.WriteHeader(http.StatusNoContent)
}

func (a *ApiManagerCtx) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn().Err(err).Msg("unable to encode response")
	}
}
