package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"firmware-catalog/internal/catalog"
	"firmware-catalog/internal/gate"
	"firmware-catalog/internal/session"
	"firmware-catalog/internal/util"

	"github.com/rs/zerolog/log"
)

// Download button labels.
const (
	LabelDownload = "Download"
	labelWait     = "Wait... "
)

// CatalogHandler exposes the session over HTTP.
type CatalogHandler struct {
	Session *session.Controller
}

// CatalogDTO summarizes the loaded catalog.
type CatalogDTO struct {
	Status   session.Status `json:"status" example:"ready" doc:"idle, ready, empty or error"`
	Error    string         `json:"error,omitempty" example:"HTTP error! status: 500"`
	Identity string         `json:"identity" example:"203.0.113.7"`
	Facets   catalog.Facets `json:"facets"`
}

// SelectionDTO is the selected build and the gate state for this client.
type SelectionDTO struct {
	Build       *catalog.BuildDTO `json:"build,omitempty"`
	Locked      bool              `json:"locked" example:"true"`
	RemainingMs int64             `json:"remainingMs" example:"42000"`
	Label       string            `json:"label" example:"Wait... 0:42"`
}

// SelectRequest picks a build by URL.
type SelectRequest struct {
	URL string `json:"url" example:"https://github.com/o/r/releases/download/v1/openwrt.img.gz"`
}

// DownloadDTO is the URL the client should open.
type DownloadDTO struct {
	URL string `json:"url" example:"https://github.com/o/r/releases/download/v1/openwrt.img.gz"`
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/catalog":
		h.method(w, r, http.MethodGet, h.catalog)
	case "/api/catalog/reload":
		h.method(w, r, http.MethodPost, h.reload)
	case "/api/builds":
		h.method(w, r, http.MethodGet, h.builds)
	case "/api/filters":
		switch r.Method {
		case http.MethodGet:
			h.getFilters(w, r)
		case http.MethodPut:
			h.putFilters(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "/api/selection":
		switch r.Method {
		case http.MethodGet:
			h.getSelection(w, r)
		case http.MethodPut:
			h.putSelection(w, r)
		case http.MethodDelete:
			h.deleteSelection(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "/api/download":
		h.method(w, r, http.MethodPost, h.download)
	default:
		http.NotFound(w, r)
	}
}

func (h *CatalogHandler) method(w http.ResponseWriter, r *http.Request, m string, fn http.HandlerFunc) {
	if r.Method != m {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fn(w, r)
}

// catalog godoc
// @Summary      Catalog status
// @Description  Load status, client identity and per-category/device counts
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  handlers.CatalogDTO
// @Router       /catalog [get]
func (h *CatalogHandler) catalog(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSON(w, h.catalogDTO())
}

// reload godoc
// @Summary      Reload catalog
// @Description  Fetch the releases feed again and rebuild the catalog. Clears the selection.
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  handlers.CatalogDTO
// @Router       /catalog/reload [post]
func (h *CatalogHandler) reload(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Load(r.Context()); err != nil {
		log.Debug().Err(err).Msg("Reload finished without a catalog")
	}
	util.WriteJSON(w, h.catalogDTO())
}

func (h *CatalogHandler) catalogDTO() CatalogDTO {
	snap := h.Session.Snapshot()
	return CatalogDTO{
		Status:   snap.Status,
		Error:    snap.LoadError,
		Identity: snap.Identity,
		Facets:   catalog.CountFacets(snap.Catalog),
	}
}

// builds godoc
// @Summary      Visible builds
// @Description  Builds matching the current filters, with formatted labels and per-client download counts
// @Tags         catalog
// @Produce      json
// @Success      200  {array}   catalog.BuildDTO
// @Router       /builds [get]
func (h *CatalogHandler) builds(w http.ResponseWriter, r *http.Request) {
	visible := h.Session.Visible()
	out := make([]catalog.BuildDTO, 0, len(visible))
	for _, b := range visible {
		out = append(out, b.ToDTO(h.Session.AdjustedCount(r.Context(), b)))
	}
	util.WriteJSON(w, out)
}

// getFilters godoc
// @Summary      Current filters
// @Tags         filters
// @Produce      json
// @Success      200  {object}  catalog.Filter
// @Router       /filters [get]
func (h *CatalogHandler) getFilters(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSON(w, h.Session.Snapshot().Filter)
}

// putFilters godoc
// @Summary      Replace filters
// @Description  Set category, device, query and sort. Empty category or device means all. A category or device change clears the selection.
// @Tags         filters
// @Accept       json
// @Produce      json
// @Param        filter  body      catalog.Filter  true  "Filters"
// @Success      200     {object}  catalog.Filter
// @Failure      400     {object}  util.ErrorBody  "Invalid JSON or unknown category/device"
// @Router       /filters [put]
func (h *CatalogHandler) putFilters(w http.ResponseWriter, r *http.Request) {
	var f catalog.Filter
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !validCategory(f.Category) {
		util.WriteError(w, http.StatusBadRequest, "unknown category: "+f.Category)
		return
	}
	if !validDevice(f.Device) {
		util.WriteError(w, http.StatusBadRequest, "unknown device: "+f.Device)
		return
	}
	h.Session.SetFilter(f)
	util.WriteJSON(w, h.Session.Snapshot().Filter)
}

// getSelection godoc
// @Summary      Current selection
// @Description  Selected build plus download gate state for this client. While a countdown runs, remainingMs and label follow its ticks.
// @Tags         selection
// @Produce      json
// @Success      200  {object}  handlers.SelectionDTO
// @Failure      500  {object}  util.ErrorBody  "Gate store error"
// @Router       /selection [get]
func (h *CatalogHandler) getSelection(w http.ResponseWriter, r *http.Request) {
	st, ok := h.Session.Countdown()
	if !ok {
		var err error
		if st, err = h.Session.GateState(r.Context()); err != nil {
			log.Error().Err(err).Msg("Failed to read download gate")
			util.WriteError(w, http.StatusInternalServerError, "gate error")
			return
		}
	}
	util.WriteJSON(w, h.selectionDTO(r.Context(), h.Session.Snapshot().Selection, st))
}

// putSelection godoc
// @Summary      Select build
// @Description  Select a visible build by URL. Starts the countdown when the gate is locked.
// @Tags         selection
// @Accept       json
// @Produce      json
// @Param        selection  body      handlers.SelectRequest  true  "Build URL"
// @Success      200        {object}  handlers.SelectionDTO
// @Failure      400        {object}  util.ErrorBody  "Invalid JSON"
// @Failure      404        {object}  util.ErrorBody  "Build not in the visible list"
// @Router       /selection [put]
func (h *CatalogHandler) putSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		util.WriteError(w, http.StatusBadRequest, "url required")
		return
	}
	rec, st, err := h.Session.Select(r.Context(), req.URL)
	switch {
	case errors.Is(err, session.ErrNotVisible):
		util.WriteError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("url", req.URL).Msg("Failed to select build")
		util.WriteError(w, http.StatusInternalServerError, "gate error")
		return
	}
	util.WriteJSON(w, h.selectionDTO(r.Context(), &rec, st))
}

// deleteSelection godoc
// @Summary      Clear selection
// @Tags         selection
// @Produce      json
// @Success      200  {object}  map[string]bool  "Cleared"
// @Router       /selection [delete]
func (h *CatalogHandler) deleteSelection(w http.ResponseWriter, _ *http.Request) {
	h.Session.ClearSelection()
	util.WriteJSON(w, map[string]any{"cleared": true})
}

// download godoc
// @Summary      Download selected build
// @Description  Triggers the download gate and returns the URL to open. Refused during the cooldown.
// @Tags         selection
// @Produce      json
// @Success      200  {object}  handlers.DownloadDTO
// @Failure      409  {object}  util.ErrorBody          "No build selected"
// @Failure      429  {object}  handlers.SelectionDTO   "Cooldown in progress"
// @Failure      500  {object}  util.ErrorBody          "Gate store error"
// @Router       /download [post]
func (h *CatalogHandler) download(w http.ResponseWriter, r *http.Request) {
	url, st, err := h.Session.Download(r.Context())
	switch {
	case errors.Is(err, session.ErrNoSelection):
		util.WriteError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, gate.ErrLocked):
		if cd, ok := h.Session.Countdown(); ok && cd.Locked {
			st = cd
		}
		w.Header().Set("Retry-After", retryAfter(st.Remaining))
		util.WriteJSONStatus(w, http.StatusTooManyRequests, h.selectionDTO(r.Context(), h.Session.Snapshot().Selection, st))
		return
	case err != nil:
		log.Error().Err(err).Msg("Download trigger failed")
		util.WriteError(w, http.StatusInternalServerError, "gate error")
		return
	}
	log.Info().Str("url", url).Msg("Download permitted")
	util.WriteJSON(w, DownloadDTO{URL: url})
}

func (h *CatalogHandler) selectionDTO(ctx context.Context, sel *catalog.BuildRecord, st gate.State) SelectionDTO {
	dto := SelectionDTO{
		Locked:      st.Locked,
		RemainingMs: st.Remaining.Milliseconds(),
		Label:       DownloadLabel(st),
	}
	if sel != nil {
		b := sel.ToDTO(h.Session.AdjustedCount(ctx, *sel))
		dto.Build = &b
	}
	return dto
}

// DownloadLabel is the download button text for a gate state.
func DownloadLabel(st gate.State) string {
	if !st.Locked {
		return LabelDownload
	}
	return labelWait + gate.FormatRemaining(st.Remaining)
}

func retryAfter(d time.Duration) string {
	return strconv.FormatInt(int64((d+time.Second-1)/time.Second), 10)
}

func validCategory(c string) bool {
	return c == "" || c == catalog.FilterAll || slices.Contains(catalog.Categories, catalog.Category(c))
}

func validDevice(d string) bool {
	return d == "" || d == catalog.FilterAll || slices.Contains(catalog.Devices(), catalog.Device(d))
}
