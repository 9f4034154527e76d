package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/schoolshop/internal/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminLogin проверяет учётные данные администратора и выдаёт cookie сессии.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	if !h.auth.CheckCredentials(req.Username, req.Password) {
		h.logger.Info("admin login rejected", zap.String("username", req.Username))
		writeStatus(w, http.StatusUnauthorized)
		return
	}

	h.auth.SetAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListNotifications возвращает уведомления администратора.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Notifications(r.Context())
	if err != nil {
		h.writeError(w, "list notifications", err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkNotificationRead отмечает одно уведомление прочитанным.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkNotificationRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllNotificationsRead отмечает все уведомления прочитанными.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAllNotificationsRead(r.Context()); err != nil {
		h.writeError(w, "mark notifications read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearNotifications удаляет все уведомления.
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearNotifications(r.Context()); err != nil {
		h.writeError(w, "clear notifications", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
