// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/admin/tenants/add": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["Admin"], "summary": "Create a tenant",
                "parameters": [
                    {"type": "string", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "name": "display_name", "in": "formData", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "invalid name"}, "409": {"description": "duplicate tenant"}}}
        },
        "/api/admin/tenants/billing": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["Admin"], "summary": "Billing totals of every tenant",
                "parameters": [{"type": "integer", "name": "before", "in": "query"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/admin/tenants/{tenant_id}/config/concurrency": {
            "put": {"security": [{"ApiKeyAuth": []}], "tags": ["Admin"], "summary": "Update a tenant's recompute worker pool concurrency",
                "consumes": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "tenant_id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"workers": {"type": "integer"}}}}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "no running consumer"}}}
        },
        "/api/organizer/players": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["Organizer"], "summary": "List the tenant's players",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/organizer/players/add": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["Organizer"], "summary": "Register players",
                "parameters": [{"type": "array", "items": {"type": "string"}, "name": "display_name[]", "in": "formData", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/organizer/player/{player_id}/disqualified": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["Organizer"], "summary": "Disqualify a player",
                "parameters": [{"type": "string", "name": "player_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "player not found"}}}
        },
        "/api/organizer/competitions": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["Organizer"], "summary": "List competitions",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/organizer/competitions/add": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["Organizer"], "summary": "Create a competition",
                "parameters": [{"type": "string", "name": "title", "in": "formData", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/organizer/competition/{competition_id}/finish": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["Organizer"], "summary": "Finish a competition",
                "parameters": [{"type": "string", "name": "competition_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "competition not found"}}}
        },
        "/api/organizer/competition/{competition_id}/score": {
            "post": {"security": [{"ApiKeyAuth": []}], "tags": ["Organizer"], "summary": "Upload a competition's score table",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "string", "name": "competition_id", "in": "path", "required": true},
                    {"type": "file", "name": "scores", "in": "formData", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "invalid table or finished competition"}, "503": {"description": "tenant busy"}}}
        },
        "/api/organizer/billing": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["Organizer"], "summary": "Billing report of every competition in the tenant",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/player/player/{player_id}": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["Player"], "summary": "A player's scores across competitions",
                "parameters": [{"type": "string", "name": "player_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "viewer disqualified"}}}
        },
        "/api/player/competition/{competition_id}/ranking": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["Player"], "summary": "One page of a competition's ranking",
                "parameters": [
                    {"type": "string", "name": "competition_id", "in": "path", "required": true},
                    {"type": "integer", "name": "rank_after", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "viewer disqualified"}}}
        },
        "/api/player/competitions": {
            "get": {"security": [{"ApiKeyAuth": []}], "tags": ["Player"], "summary": "List competitions",
                "responses": {"200": {"description": "OK"}}}
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Scoreboard API",
	Description:      "Multi-tenant competition scoring with per-tenant JWT",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
