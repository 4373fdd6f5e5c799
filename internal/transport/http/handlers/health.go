package handlers

import (
	"net/http"
)

// Livez: процесс жив.
func (h *Handlers) Livez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Healthz: сервис готов принимать изменения (источники запущены, shutdown не начат).
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	if h.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}

	http.Error(w, "not ready", http.StatusServiceUnavailable)
}
