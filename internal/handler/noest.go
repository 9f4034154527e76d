package handler

import (
	"net/http"

	"github.com/mmeshcher/schoolshop/internal/relay"
)

// RelayHealth отвечает на GET-запрос к ретранслятору. В NOEST не обращается.
func (h *Handler) RelayHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.relay.Health())
}

// RelayAction выполняет действие ретранслятора из тела POST-запроса.
func (h *Handler) RelayAction(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req, err := relay.DecodeRequest(r.Body)
	if err != nil {
		resp := relay.UnknownAction("")
		resp.Error = "invalid JSON body"
		resp.Debug = err.Error()
		writeJSON(w, resp.StatusCode, resp)
		return
	}

	resp := h.relay.Do(r.Context(), req)
	writeJSON(w, resp.StatusCode, resp)
}
