// Package docs holds the OpenAPI description served under /swagger.
//
// The document is maintained by hand in swag's output format and must be
// kept in step with Server.routes and the handler annotations. Running
// `go generate ./internal/server` replaces it with swag's generated
// version.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "PhishLens Maintainers",
            "url": "https://github.com/raysh454/phishlens"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/analyze": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Analyse a collected page",
                "parameters": [
                    {"description": "Page payload", "name": "payload", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/model.AnalysisPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.FusedResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scan": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Collect and analyse one URL",
                "parameters": [
                    {"description": "URL to scan", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/server.ScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.FusedResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scan/batch": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Scan several URLs",
                "parameters": [
                    {"description": "URLs to scan", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/server.BatchScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.FusedResult"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/scans/last": {
            "get": {
                "produces": ["application/json"],
                "summary": "Most recent result",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.FusedResult"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/reports": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Report a domain",
                "parameters": [
                    {"description": "URL to report", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/server.ReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.ReportResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ReportResult"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ReportResult"}}
                }
            }
        },
        "/reports/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Report count of a URL's domain",
                "parameters": [
                    {"type": "string", "description": "URL or domain", "name": "url", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.LedgerInfo"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/settings": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Merge a partial settings object",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Settings"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/plugins": {
            "get": {
                "produces": ["application/json"],
                "summary": "List plugins merged with their stored state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.PluginsResponse"}}
                }
            },
            "delete": {
                "summary": "Drop imported plugins and stored plugin state",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/plugins/import": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Replace the imported plugin definitions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.PluginsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/plugins/{id}": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Enable, disable or tune one plugin",
                "parameters": [
                    {"type": "string", "description": "Plugin id", "name": "id", "in": "path", "required": true},
                    {"description": "Changes", "name": "patch", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/app.PluginPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.PluginView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/plugins/{id}/settings/{setting}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Set one plugin setting",
                "parameters": [
                    {"type": "string", "description": "Plugin id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Setting id", "name": "setting", "in": "path", "required": true},
                    {"description": "New value", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/server.PluginSettingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.PluginView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "app.PluginPatch": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "settings": {"type": "object", "additionalProperties": true}
            }
        },
        "model.PluginSetting": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "label": {"type": "string"},
                "type": {"type": "string", "enum": ["toggle", "select", "range"]},
                "value": {},
                "options": {"type": "array", "items": {"type": "string"}},
                "min": {"type": "number"},
                "max": {"type": "number"},
                "step": {"type": "number"}
            }
        },
        "model.PluginView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "category": {"type": "string"},
                "description": {"type": "string"},
                "endpoint": {"type": "string"},
                "defaultEnabled": {"type": "boolean"},
                "settings": {"type": "array", "items": {"$ref": "#/definitions/model.PluginSetting"}},
                "enabled": {"type": "boolean"},
                "settingsMap": {"type": "object", "additionalProperties": true},
                "custom": {"type": "boolean"}
            }
        },
        "server.PluginSettingRequest": {
            "type": "object",
            "properties": {"value": {}}
        },
        "server.PluginsResponse": {
            "type": "object",
            "properties": {
                "plugins": {"type": "array", "items": {"$ref": "#/definitions/model.PluginView"}},
                "active": {"type": "integer"}
            }
        },
        "model.FormInfo": {
            "type": "object",
            "properties": {
                "inputs": {"type": "integer"},
                "sensitive": {"type": "boolean"}
            }
        },
        "model.AnalysisPayload": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "text": {"type": "string"},
                "title": {"type": "string"},
                "lang": {"type": "string"},
                "links": {"type": "array", "items": {"type": "string"}},
                "forms": {"type": "array", "items": {"$ref": "#/definitions/model.FormInfo"}},
                "source": {"type": "string"}
            }
        },
        "model.FusedResult": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "url": {"type": "string"},
                "riskScore": {"type": "number"},
                "label": {"type": "string"},
                "signals": {"type": "array", "items": {"type": "string"}},
                "engine": {"type": "string"},
                "urlScore": {"type": "number"},
                "urlLabel": {"type": "string"},
                "textScore": {"type": "number"},
                "textLabel": {"type": "string"},
                "textError": {"type": "string"},
                "threshold": {"type": "number"},
                "ledgerCount": {"type": "integer"},
                "at": {"type": "integer"}
            }
        },
        "model.LedgerInfo": {
            "type": "object",
            "properties": {
                "hash": {"type": "string"},
                "count": {"type": "integer"},
                "lastAt": {"type": "integer"}
            }
        },
        "model.ReportResult": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "error": {"type": "string"},
                "hash": {"type": "string"},
                "domain": {"type": "string"},
                "count": {"type": "integer"},
                "lastAt": {"type": "integer"}
            }
        },
        "model.Settings": {
            "type": "object",
            "properties": {
                "mlBaseUrl": {"type": "string"},
                "mlPath": {"type": "string"},
                "mlHealthPath": {"type": "string"},
                "apiKey": {"type": "string"},
                "autoScan": {"type": "boolean"},
                "deepScan": {"type": "boolean"},
                "globalThreshold": {"type": "number"},
                "storeHistory": {"type": "boolean"},
                "ledgerEnabled": {"type": "boolean"},
                "ledgerBoost": {"type": "number"},
                "trustedDomains": {"type": "array", "items": {"type": "string"}},
                "autoReport": {"type": "boolean"},
                "localTextFallback": {"type": "boolean"}
            }
        },
        "server.BatchScanRequest": {
            "type": "object",
            "properties": {
                "urls": {"type": "array", "items": {"type": "string"}},
                "concurrency": {"type": "integer"}
            }
        },
        "server.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "server.ReportRequest": {
            "type": "object",
            "properties": {"url": {"type": "string"}, "source": {"type": "string"}}
        },
        "server.ScanRequest": {
            "type": "object",
            "properties": {"url": {"type": "string"}, "source": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "PhishLens API",
	Description:      "Phishing-risk scoring, scan history and the abuse-report ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
