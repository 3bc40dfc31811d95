package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Edunova API",
        "description": "Constraint-based weekly timetable generator with student accounts",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Timetable", "description": "Weekly timetable generation and export"},
        {"name": "Authentication", "description": "Student registration and login"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate timetable from an uploaded roster",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "num_classes", "in": "formData", "type": "integer", "required": true},
                    {"name": "periods_per_day", "in": "formData", "type": "integer", "required": true},
                    {"name": "days", "in": "formData", "type": "string", "required": true, "description": "Comma separated day labels"},
                    {"name": "seed", "in": "formData", "type": "integer", "required": false},
                    {"name": "file", "in": "formData", "type": "file", "required": true, "description": "Spreadsheet with Subject and Teacher columns (.xlsx or .csv)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LegacyTimetableResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/Detail"}},
                    "413": {"description": "Upload too large", "schema": {"$ref": "#/definitions/Detail"}}
                }
            }
        },
        "/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a student account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RegisterResponse"}},
                    "400": {"description": "User already exists", "schema": {"$ref": "#/definitions/Detail"}}
                }
            }
        },
        "/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "400": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/Detail"}}
                }
            }
        },
        "/api/v1/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a student account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current account",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate timetable from a JSON roster",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "CONFIGURATION_ERROR, INVALID_PARAMETER or VALIDATION_ERROR", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/upload": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate timetable from an uploaded roster",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "num_classes", "in": "formData", "type": "integer", "required": true},
                    {"name": "periods_per_day", "in": "formData", "type": "integer", "required": true},
                    {"name": "days", "in": "formData", "type": "string", "required": true},
                    {"name": "seed", "in": "formData", "type": "integer", "required": false},
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/export": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate and download a timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "title", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/cache": {
            "delete": {
                "tags": ["Timetable"],
                "summary": "Drop cached timetables",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/metrics/system": {
            "get": {
                "tags": ["Observability"],
                "summary": "System metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Assignment": {
            "type": "array",
            "description": "[subject, teacher]; [\"FREE\", \"FREE\"] marks an unfilled slot",
            "items": {"type": "string"},
            "minItems": 2,
            "maxItems": 2
        },
        "DayTable": {
            "type": "array",
            "description": "One class to assignment mapping per period",
            "items": {"type": "object", "additionalProperties": {"$ref": "#/definitions/Assignment"}}
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "numClasses": {"type": "integer"},
                "periodsPerDay": {"type": "integer"},
                "days": {"type": "array", "items": {"type": "string"}},
                "subjects": {"type": "array", "items": {"type": "string"}},
                "subjectTeacher": {"type": "object", "additionalProperties": {"type": "string"}},
                "seed": {"type": "integer", "format": "int64"}
            }
        },
        "LegacyTimetableResponse": {
            "type": "object",
            "properties": {
                "timetable": {"type": "object", "additionalProperties": {"$ref": "#/definitions/DayTable"}},
                "classes": {"type": "array", "items": {"type": "string"}},
                "days": {"type": "array", "items": {"type": "string"}},
                "periods": {"type": "integer"},
                "loads": {"type": "object", "description": "Assignments per teacher summed over every day run, including earlier runs of a repeated day label that the timetable object does not show.", "additionalProperties": {"type": "integer"}},
                "seed": {"type": "integer", "format": "int64"}
            }
        },
        "RegisterRequest": {
            "type": "object",
            "required": ["name", "email", "password"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RegisterResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "token_type": {"type": "string"},
                "user_type": {"type": "string"},
                "expires_in": {"type": "integer"}
            }
        },
        "Detail": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
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
