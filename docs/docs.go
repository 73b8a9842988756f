// Package docs holds the OpenAPI document served under /swagger/. It mirrors
// the @Router annotations in internal/api/handlers and is edited by hand
// alongside them.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/catalog": {
            "get": {
                "description": "Load status, client identity and per-category/device counts",
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Catalog status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CatalogDTO"}}
                }
            }
        },
        "/catalog/reload": {
            "post": {
                "description": "Fetch the releases feed again and rebuild the catalog. Clears the selection.",
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Reload catalog",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CatalogDTO"}}
                }
            }
        },
        "/builds": {
            "get": {
                "description": "Builds matching the current filters, with formatted labels and per-client download counts",
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Visible builds",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/catalog.BuildDTO"}}}
                }
            }
        },
        "/filters": {
            "get": {
                "produces": ["application/json"],
                "tags": ["filters"],
                "summary": "Current filters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Filter"}}
                }
            },
            "put": {
                "description": "Set category, device, query and sort. Empty category or device means all. A category or device change clears the selection.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["filters"],
                "summary": "Replace filters",
                "parameters": [
                    {"description": "Filters", "name": "filter", "in": "body", "required": true, "schema": {"$ref": "#/definitions/catalog.Filter"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Filter"}},
                    "400": {"description": "Invalid JSON or unknown category/device", "schema": {"$ref": "#/definitions/util.ErrorBody"}}
                }
            }
        },
        "/selection": {
            "get": {
                "description": "Selected build plus download gate state for this client. While a countdown runs, remainingMs and label follow its ticks.",
                "produces": ["application/json"],
                "tags": ["selection"],
                "summary": "Current selection",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SelectionDTO"}},
                    "500": {"description": "Gate store error", "schema": {"$ref": "#/definitions/util.ErrorBody"}}
                }
            },
            "put": {
                "description": "Select a visible build by URL. Starts the countdown when the gate is locked.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["selection"],
                "summary": "Select build",
                "parameters": [
                    {"description": "Build URL", "name": "selection", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SelectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SelectionDTO"}},
                    "400": {"description": "Invalid JSON", "schema": {"$ref": "#/definitions/util.ErrorBody"}},
                    "404": {"description": "Build not in the visible list", "schema": {"$ref": "#/definitions/util.ErrorBody"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["selection"],
                "summary": "Clear selection",
                "responses": {
                    "200": {"description": "Cleared", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}}
                }
            }
        },
        "/download": {
            "post": {
                "description": "Triggers the download gate and returns the URL to open. Refused during the cooldown.",
                "produces": ["application/json"],
                "tags": ["selection"],
                "summary": "Download selected build",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.DownloadDTO"}},
                    "409": {"description": "No build selected", "schema": {"$ref": "#/definitions/util.ErrorBody"}},
                    "429": {"description": "Cooldown in progress", "schema": {"$ref": "#/definitions/handlers.SelectionDTO"}},
                    "500": {"description": "Gate store error", "schema": {"$ref": "#/definitions/util.ErrorBody"}}
                }
            }
        },
        "/webhooks": {
            "get": {
                "description": "Get all registered webhooks",
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "List webhooks",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/webhook.WebhookDTO"}}},
                    "500": {"description": "Database error", "schema": {"type": "string"}}
                }
            },
            "post": {
                "description": "Register a new webhook endpoint. Enabled defaults to true.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Create webhook",
                "parameters": [
                    {"description": "Webhook configuration", "name": "webhook", "in": "body", "required": true, "schema": {"$ref": "#/definitions/webhook.WebhookDTO"}}
                ],
                "responses": {
                    "200": {"description": "Created webhook ID", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}},
                    "400": {"description": "Invalid JSON, missing fields or unknown event", "schema": {"type": "string"}},
                    "500": {"description": "Database error", "schema": {"type": "string"}}
                }
            }
        },
        "/webhooks/{id}": {
            "put": {
                "description": "Update an existing webhook configuration",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Update webhook",
                "parameters": [
                    {"type": "integer", "description": "Webhook ID", "name": "id", "in": "path", "required": true},
                    {"description": "Updated webhook configuration", "name": "webhook", "in": "body", "required": true, "schema": {"$ref": "#/definitions/webhook.WebhookDTO"}}
                ],
                "responses": {
                    "200": {"description": "Update confirmation", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "400": {"description": "Invalid JSON or webhook ID", "schema": {"type": "string"}},
                    "404": {"description": "Webhook not found", "schema": {"type": "string"}},
                    "500": {"description": "Database error", "schema": {"type": "string"}}
                }
            },
            "delete": {
                "description": "Remove a webhook subscription",
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Delete webhook",
                "parameters": [
                    {"type": "integer", "description": "Webhook ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Deletion confirmation", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "400": {"description": "Invalid webhook ID", "schema": {"type": "string"}},
                    "404": {"description": "Webhook not found", "schema": {"type": "string"}},
                    "500": {"description": "Database error", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "catalog.BuildDTO": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "example": "openwrt"},
                "dateLabel": {"type": "string", "example": "01/01/2024"},
                "device": {"type": "string", "example": "x86_64"},
                "displayName": {"type": "string", "example": "openwrt-x86-64-generic"},
                "downloadCount": {"type": "integer", "example": 10},
                "downloadCountLabel": {"type": "string", "example": "10"},
                "originalName": {"type": "string", "example": "openwrt-x86-64-generic-20240101.img.gz"},
                "publishedAt": {"type": "string", "example": "2024-01-01T00:00:00Z"},
                "size": {"type": "integer", "example": 104857600},
                "sizeLabel": {"type": "string", "example": "100.0 MB"},
                "url": {"type": "string", "example": "https://github.com/o/r/releases/download/v1/openwrt.img.gz"}
            }
        },
        "catalog.Facets": {
            "type": "object",
            "properties": {
                "categories": {"type": "object", "additionalProperties": {"type": "integer"}},
                "devices": {"type": "object", "additionalProperties": {"type": "integer"}},
                "total": {"type": "integer"}
            }
        },
        "catalog.Filter": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "example": "all"},
                "device": {"type": "string", "example": "all"},
                "query": {"type": "string", "example": "x86"},
                "sort": {"type": "string", "example": "recency"}
            }
        },
        "handlers.CatalogDTO": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "HTTP error! status: 500"},
                "facets": {"$ref": "#/definitions/catalog.Facets"},
                "identity": {"type": "string", "example": "203.0.113.7"},
                "status": {"type": "string", "example": "ready"}
            }
        },
        "handlers.DownloadDTO": {
            "type": "object",
            "properties": {
                "url": {"type": "string", "example": "https://github.com/o/r/releases/download/v1/openwrt.img.gz"}
            }
        },
        "handlers.SelectRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string", "example": "https://github.com/o/r/releases/download/v1/openwrt.img.gz"}
            }
        },
        "handlers.SelectionDTO": {
            "type": "object",
            "properties": {
                "build": {"$ref": "#/definitions/catalog.BuildDTO"},
                "label": {"type": "string", "example": "Wait... 0:42"},
                "locked": {"type": "boolean", "example": true},
                "remainingMs": {"type": "integer", "example": 42000}
            }
        },
        "util.ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "no firmware selected"}
            }
        },
        "webhook.WebhookDTO": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean", "example": true},
                "events": {"type": "array", "items": {"type": "string"}, "example": ["catalog.loaded", "build.downloaded"]},
                "id": {"type": "integer", "example": 1},
                "url": {"type": "string", "example": "https://example.com/webhook"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Firmware Catalog API",
	Description:      "Browse OpenWrt and ImmortalWrt release assets and gate repeated downloads per client.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
