package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
	"github.com/edumarques81/stellar-offline-player/internal/infra/env"
	"github.com/edumarques81/stellar-offline-player/internal/infra/history"
	"github.com/edumarques81/stellar-offline-player/internal/infra/network"
	"github.com/edumarques81/stellar-offline-player/internal/version"
)

// api holds what the HTTP handlers read from. Only host is required.
type api struct {
	host    *session.Host
	history *history.Recorder
	network *network.Monitor
	focus   *env.Focus
	phone   *env.Phone
	noisy   *env.Noisy
	ping    func() error

	ws        http.Handler
	socketIO  http.Handler
	staticDir string
}

func newRouter(a api) http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", a.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, version.GetInfo())
		})
		r.Get("/state", a.state)
		r.Get("/queue", a.queue)
		r.Post("/command", a.command)
		r.Get("/history", a.recent)
		r.Get("/network", a.networkStatus)

		r.Route("/env", func(r chi.Router) {
			r.Post("/headset", func(w http.ResponseWriter, r *http.Request) {
				a.host.HeadsetClick()
				w.WriteHeader(http.StatusNoContent)
			})
			r.Post("/noisy", a.becomingNoisy)
			r.Post("/call/{state}", a.call)
			r.Post("/focus/{change}", a.focusChange)
		})
	})

	if a.ws != nil {
		r.Handle("/ws", a.ws)
	}
	if a.socketIO != nil {
		r.Handle("/socket.io/*", a.socketIO)
	}
	if a.staticDir != "" {
		r.NotFound(spaHandler(a.staticDir))
	}
	return r
}

func (a api) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"player":  a.host.PlayerID(),
		"clients": a.host.Clients(),
	}
	select {
	case <-a.host.Done():
		status["status"] = "stopped"
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	default:
	}
	if a.ping != nil {
		if err := a.ping(); err != nil {
			status["status"] = "error"
			status["decoder"] = "disconnected"
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["decoder"] = "connected"
	}
	writeJSON(w, http.StatusOK, status)
}

func (a api) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.host.State().ToJSON(time.Now()))
}

func (a api) queue(w http.ResponseWriter, r *http.Request) {
	p := a.host.Playlist()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     p.Name(),
		"token":    p.Token(),
		"editable": p.Editable(),
		"items":    p.Items(),
	})
}

// command runs a session command posted as {"action": ..., "args": {...}}.
func (a api) command(w http.ResponseWriter, r *http.Request) {
	var cmd session.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid command: "+err.Error(), http.StatusBadRequest)
		return
	}
	if cmd.Action == "" {
		http.Error(w, "action required", http.StatusBadRequest)
		return
	}
	if err := a.host.Dispatch(r.Context(), cmd); err != nil {
		log.Debug().Err(err).Str("action", cmd.Action).Msg("REST command rejected")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a api) recent(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}
	n := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	entries, err := a.history.Recent(n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a api) networkStatus(w http.ResponseWriter, r *http.Request) {
	if a.network == nil {
		http.Error(w, "network monitor disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a.network.Status())
}

func (a api) becomingNoisy(w http.ResponseWriter, r *http.Request) {
	if a.noisy == nil {
		http.Error(w, "noisy detector disabled", http.StatusNotFound)
		return
	}
	a.noisy.Trigger()
	w.WriteHeader(http.StatusNoContent)
}

func (a api) call(w http.ResponseWriter, r *http.Request) {
	if a.phone == nil {
		http.Error(w, "phone state disabled", http.StatusNotFound)
		return
	}
	switch chi.URLParam(r, "state") {
	case "idle":
		a.phone.SetState(env.CallIdle)
	case "ringing":
		a.phone.SetState(env.CallRinging)
	case "offhook":
		a.phone.SetState(env.CallOffHook)
	default:
		http.Error(w, "unknown call state", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a api) focusChange(w http.ResponseWriter, r *http.Request) {
	if a.focus == nil {
		http.Error(w, "audio focus disabled", http.StatusNotFound)
		return
	}
	switch chi.URLParam(r, "change") {
	case "loss":
		a.focus.Lose()
	case "transient":
		a.focus.LoseTransient(false)
	case "duck":
		a.focus.LoseTransient(true)
	case "gain":
		a.focus.Gain()
	default:
		http.Error(w, "unknown focus change", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// spaHandler serves files from dir and falls back to index.html for
// client-side routes.
func spaHandler(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
