package webhook

// Events emitted by the catalog session.
const (
	EventCatalogLoaded   = "catalog.loaded"
	EventCatalogEmpty    = "catalog.empty"
	EventCatalogFailed   = "catalog.failed"
	EventBuildDownloaded = "build.downloaded"
)

// KnownEvents lists every event a webhook can subscribe to.
var KnownEvents = []string{
	EventCatalogLoaded,
	EventCatalogEmpty,
	EventCatalogFailed,
	EventBuildDownloaded,
}

// Webhook is stored in DB.
type Webhook struct {
	ID      int64
	URL     string
	Events  []string
	Enabled bool
}

// WebhookDTO is sent/received over the API.
type WebhookDTO struct {
	ID      int64    `json:"id" example:"1" doc:"Webhook ID"`
	URL     string   `json:"url" example:"https://example.com/webhook" doc:"Webhook endpoint URL"`
	Events  []string `json:"events" example:"catalog.loaded,build.downloaded" doc:"Events to subscribe to"`
	Enabled *bool    `json:"enabled,omitempty" example:"true" doc:"Whether webhook is active, defaults to true"`
}

func (w Webhook) ToDTO() WebhookDTO {
	enabled := w.Enabled
	return WebhookDTO{ID: w.ID, URL: w.URL, Events: w.Events, Enabled: &enabled}
}

type EventPayload struct {
	Event string `json:"event" example:"build.downloaded" doc:"Event type"`
	Data  any    `json:"data" doc:"Event-specific payload data"`
	Time  string `json:"time" example:"2024-01-15T10:30:00Z" doc:"Event timestamp in RFC3339 format"`
}

// CatalogEvent is the payload of the catalog.* events.
type CatalogEvent struct {
	Builds int    `json:"builds"`
	Error  string `json:"error,omitempty"`
}

// DownloadEvent is the payload of build.downloaded.
type DownloadEvent struct {
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
	Identity    string `json:"identity"`
}
