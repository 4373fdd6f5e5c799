package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fraternet/notify-service/internal/config"
	"github.com/fraternet/notify-service/internal/triggers"
	apierrors "github.com/fraternet/notify-service/internal/transport/http/errors"
)

// headerEventID: id события CloudEvents в binary-режиме (Eventarc, Cloud Functions).
const headerEventID = "Ce-Id"

// acceptedResponse: тело ответа 202.
type acceptedResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

// PostChange принимает JSON-конверт изменения: POST /v1/changes.
func (h *Handlers) PostChange(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	ch, err := triggers.DecodeEnvelope(body)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.dispatch(w, r, ch)
}

// PostFirestore принимает событие триггера Firestore: POST /v1/firestore/{collection}.
func (h *Handlers) PostFirestore(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	ch, err := triggers.DecodeFirestoreEvent(chi.URLParam(r, "collection"), body)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.dispatch(w, r, ch)
}

// dispatch передаёт изменение обработчику. Исход доставки push на ответ не влияет:
// 202 - изменение обработано, 400 - снимок не разобран, 500 - panic или таймаут.
func (h *Handlers) dispatch(w http.ResponseWriter, r *http.Request, ch triggers.Change) {
	ch.Source = config.SourceHTTP
	if ch.ID == "" {
		ch.ID = strings.TrimSpace(r.Header.Get(headerEventID))
	}

	if err := h.handle(r.Context(), ch); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted", Result: triggers.Result(nil)})
}

// readBody читает тело с ограничением размера; ошибка чтения: ErrBadChange.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", triggers.ErrBadChange, err)
	}

	return body, nil
}
