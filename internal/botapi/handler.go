package botapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Handler exposes the webhook transport: Telegram POSTs updates to
// /telegram/webhook instead of the bot long-polling for them.
type Handler struct {
	Router *Router
}

func NewHandler(router *Router) *Handler {
	return &Handler{Router: router}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/telegram/webhook", h.Webhook)
	r.Get("/healthz", h.Health)
	return r
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.Router.Logger.Error("API", fmt.Sprintf("[%s] invalid webhook body: %v", requestID, err))
		http.Error(w, "invalid update body", http.StatusBadRequest)
		return
	}
	h.Router.Logger.Debug("API", fmt.Sprintf("[%s] webhook update %d", requestID, update.UpdateID))

	h.Router.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
