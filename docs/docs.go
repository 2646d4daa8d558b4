// Package docs registra el documento OpenAPI de la API en swag. Regenerar con
// `swag init -g cmd/api/main.go` al cambiar las anotaciones de los handlers.
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Iniciar sesión",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Cerrar sesión",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Identidad actual",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/superadmin/companies": {
            "get": {
                "produces": ["application/json"],
                "tags": ["superadmin"],
                "summary": "Listar empresas",
                "parameters": [
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CompanyListResponse"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["superadmin"],
                "summary": "Crear empresa",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateCompanyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.CompanyResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/superadmin/companies/{id}/impersonate": {
            "post": {
                "produces": ["application/json"],
                "tags": ["superadmin"],
                "summary": "Suplantar empresa",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ImpersonateResponse"}}}
            }
        },
        "/api/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Listar productos",
                "parameters": [
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ProductListResponse"}}}
            }
        },
        "/api/sales/{id}/ticket.pdf": {
            "get": {
                "produces": ["application/pdf"],
                "tags": ["sales"],
                "summary": "Ticket PDF de la venta",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "redirect_to": {"type": "string"}
            }
        },
        "dto.LoginRequest": {
            "type": "object",
            "required": ["identifier", "password"],
            "properties": {
                "identifier": {"type": "string"},
                "password": {"type": "string"},
                "remember": {"type": "boolean"}
            }
        },
        "dto.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "company_id": {"type": "string"},
                "username": {"type": "string"},
                "display_name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "active": {"type": "boolean"},
                "permissions": {"type": "object", "additionalProperties": {"type": "boolean"}},
                "created_at": {"type": "string"}
            }
        },
        "dto.LoginResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/dto.UserResponse"},
                "company_slug": {"type": "string"},
                "redirect_to": {"type": "string"}
            }
        },
        "dto.CompanyResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "slug": {"type": "string"},
                "plan": {"type": "string"},
                "status": {"type": "string"},
                "paused_at": {"type": "string"},
                "pause_reason": {"type": "string"},
                "pause_scheduled_for": {"type": "string"},
                "subscription_ends_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "dto.PageResponse": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "dto.CompanyListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/dto.CompanyResponse"}},
                "page": {"$ref": "#/definitions/dto.PageResponse"}
            }
        },
        "dto.CreateCompanyRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "slug": {"type": "string"},
                "plan": {"type": "string"},
                "admin_username": {"type": "string"},
                "admin_email": {"type": "string"},
                "admin_password": {"type": "string"}
            }
        },
        "dto.ImpersonateResponse": {
            "type": "object",
            "properties": {
                "company_id": {"type": "string"},
                "redirect_to": {"type": "string"}
            }
        },
        "dto.MeResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/dto.UserResponse"},
                "company": {"$ref": "#/definitions/dto.CompanyResponse"},
                "impersonating": {"type": "boolean"},
                "tenant_source": {"type": "string"}
            }
        },
        "dto.ProductResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "company_id": {"type": "string"},
                "sku": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "stock": {"type": "number"},
                "active": {"type": "boolean"},
                "created_at": {"type": "string"}
            }
        },
        "dto.ProductListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/dto.ProductResponse"}},
                "page": {"$ref": "#/definitions/dto.PageResponse"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Zentral API",
	Description:      "Aislamiento multi-empresa: contexto de tenant por solicitud, consola de super-admin y API de negocio.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
