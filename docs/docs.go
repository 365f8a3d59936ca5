// Package docs registers the OpenAPI description served at /swagger.
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
        "/register": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Customers"],
                "summary": "Register customer",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/check-eligibility": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Loans"],
                "summary": "Check eligibility",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoanRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/create-loan": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Loans"],
                "summary": "Create loan",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoanRequest"}}],
                "responses": {
                    "200": {"description": "Rejected", "schema": {"$ref": "#/definitions/response.Response"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "503": {"description": "Customer busy", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/view-loan/{loan_id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Loans"],
                "summary": "View loan",
                "parameters": [{"type": "integer", "name": "loan_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/view-loan/{loan_id}/schedule": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Loans"],
                "summary": "Loan schedule",
                "parameters": [{"type": "integer", "name": "loan_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/view-loans/{customer_id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Loans"],
                "summary": "View customer loans",
                "parameters": [
                    {"type": "integer", "name": "customer_id", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/ingest-data": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Ingestion"],
                "summary": "Ingest data",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/response.Response"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/ingest-data/{job_id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Ingestion"],
                "summary": "Ingestion status",
                "parameters": [{"type": "string", "name": "job_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.RegisterRequest": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "age": {"type": "integer"},
                "monthly_income": {"type": "number"},
                "phone_number": {"type": "integer"}
            }
        },
        "handlers.LoanRequest": {
            "type": "object",
            "properties": {
                "customer_id": {"type": "integer"},
                "loan_amount": {"type": "number"},
                "interest_rate": {"type": "number"},
                "tenure": {"type": "integer"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-KEY", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Credit Approval API",
	Description:      "Credit scoring, loan eligibility and loan origination.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
