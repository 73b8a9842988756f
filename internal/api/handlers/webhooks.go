package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"firmware-catalog/internal/util"
	"firmware-catalog/internal/webhook"
)

// WebhookHandler manages webhook CRUD.
type WebhookHandler struct {
	Repo webhook.Repository
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/webhooks" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// /api/webhooks/{id}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/webhooks/")
	id, _ := strconv.ParseInt(idStr, 10, 64)
	if id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// list godoc
// @Summary      List webhooks
// @Description  Get all registered webhooks
// @Tags         webhooks
// @Produce      json
// @Success      200  {array}   webhook.WebhookDTO
// @Failure      500  {string}  string  "Database error"
// @Router       /webhooks [get]
func (h *WebhookHandler) list(w http.ResponseWriter) {
	hooks, err := h.Repo.List()
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	out := make([]webhook.WebhookDTO, 0, len(hooks))
	for _, x := range hooks {
		out = append(out, x.ToDTO())
	}
	util.WriteJSON(w, out)
}

// create godoc
// @Summary      Create webhook
// @Description  Register a new webhook endpoint. Enabled defaults to true.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        webhook  body      webhook.WebhookDTO  true  "Webhook configuration"
// @Success      200      {object}  map[string]int      "Created webhook ID"
// @Failure      400      {string}  string              "Invalid JSON, missing fields or unknown event"
// @Failure      500      {string}  string              "Database error"
// @Router       /webhooks [post]
func (h *WebhookHandler) create(w http.ResponseWriter, r *http.Request) {
	dto, ok := decodeWebhook(w, r)
	if !ok {
		return
	}

	id, err := h.Repo.Create(fromDTO(dto))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	util.WriteJSON(w, map[string]any{"id": id})
}

// update godoc
// @Summary      Update webhook
// @Description  Update an existing webhook configuration
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true  "Webhook ID"
// @Param        webhook  body      webhook.WebhookDTO  true  "Updated webhook configuration"
// @Success      200      {object}  map[string]bool     "Update confirmation"
// @Failure      400      {string}  string              "Invalid JSON or webhook ID"
// @Failure      404      {string}  string              "Webhook not found"
// @Failure      500      {string}  string              "Database error"
// @Router       /webhooks/{id} [put]
func (h *WebhookHandler) update(w http.ResponseWriter, r *http.Request, id int64) {
	dto, ok := decodeWebhook(w, r)
	if !ok {
		return
	}

	if err := h.Repo.Update(id, fromDTO(dto)); err != nil {
		writeRepoError(w, err)
		return
	}

	util.WriteJSON(w, map[string]any{"updated": true})
}

// delete godoc
// @Summary      Delete webhook
// @Description  Remove a webhook subscription
// @Tags         webhooks
// @Produce      json
// @Param        id   path      int              true  "Webhook ID"
// @Success      200  {object}  map[string]bool  "Deletion confirmation"
// @Failure      400  {string}  string           "Invalid webhook ID"
// @Failure      404  {string}  string           "Webhook not found"
// @Failure      500  {string}  string           "Database error"
// @Router       /webhooks/{id} [delete]
func (h *WebhookHandler) delete(w http.ResponseWriter, id int64) {
	if err := h.Repo.Delete(id); err != nil {
		writeRepoError(w, err)
		return
	}
	util.WriteJSON(w, map[string]any{"deleted": true})
}

func decodeWebhook(w http.ResponseWriter, r *http.Request) (webhook.WebhookDTO, bool) {
	var dto webhook.WebhookDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return dto, false
	}
	if dto.URL == "" || len(dto.Events) == 0 {
		http.Error(w, "url/events required", http.StatusBadRequest)
		return dto, false
	}
	for _, e := range dto.Events {
		if !slices.Contains(webhook.KnownEvents, e) {
			http.Error(w, "unknown event: "+e, http.StatusBadRequest)
			return dto, false
		}
	}
	return dto, true
}

func fromDTO(dto webhook.WebhookDTO) webhook.Webhook {
	enabled := dto.Enabled == nil || *dto.Enabled
	return webhook.Webhook{URL: dto.URL, Events: dto.Events, Enabled: enabled}
}

func writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, webhook.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "db error", http.StatusInternalServerError)
}
