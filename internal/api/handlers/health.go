package handlers

import (
	"net/http"

	"firmware-catalog/internal/util"
)

// Health godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func Health(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSON(w, map[string]string{"status": "ok"})
}
