package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AI Declaration API",
        "description": "Students declare the AI tools they used on assignments.",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Declarations", "description": "AI usage declarations"},
        {"name": "Health", "description": "Liveness and readiness"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "Server is running", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness probe, checks the database",
                "responses": {
                    "200": {"description": "Ready", "schema": {"$ref": "#/definitions/Envelope"}},
                    "503": {"description": "Database unavailable", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/declarations": {
            "get": {
                "tags": ["Declarations"],
                "summary": "List declarations",
                "description": "Every stored row, newest first.",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DeclarationList"}},
                    "500": {"description": "Failed to fetch declarations", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            },
            "post": {
                "tags": ["Declarations"],
                "summary": "Submit an AI usage declaration",
                "description": "Creates one row per selected AI tool. aiTools is a JSON array of strings.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "userName", "in": "formData", "type": "string", "required": true},
                    {"name": "assignmentTitle", "in": "formData", "type": "string", "required": true},
                    {"name": "aiTools", "in": "formData", "type": "string", "required": true, "description": "JSON array of tool names"},
                    {"name": "customTool", "in": "formData", "type": "string"},
                    {"name": "usagePurpose", "in": "formData", "type": "string", "required": true},
                    {"name": "aiContent", "in": "formData", "type": "string", "required": true},
                    {"name": "screenshot", "in": "formData", "type": "file", "description": "jpeg, png, gif or webp; max 5MB"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/Envelope"}},
                    "500": {"description": "Failed to create declaration", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/declarations/groups": {
            "get": {
                "tags": ["Declarations"],
                "summary": "List declarations grouped by submission",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GroupList"}},
                    "500": {"description": "Failed to fetch declarations", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/declarations/export": {
            "get": {
                "tags": ["Declarations"],
                "summary": "Export every declaration",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "Declaration": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "submission_id": {"type": "string"},
                "user_name": {"type": "string"},
                "assignment_title": {"type": "string"},
                "ai_tool": {"type": "string"},
                "usage_purpose": {"type": "string"},
                "ai_content": {"type": "string"},
                "screenshot_path": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "DeclarationGroup": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "submission_id": {"type": "string"},
                "user_name": {"type": "string"},
                "assignment_title": {"type": "string"},
                "usage_purpose": {"type": "string"},
                "ai_content": {"type": "string"},
                "screenshot_path": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "ai_tools": {"type": "array", "items": {"type": "string"}},
                "declaration_ids": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "DeclarationList": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "count": {"type": "integer"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/Declaration"}}
            }
        },
        "GroupList": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "count": {"type": "integer"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/DeclarationGroup"}}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
