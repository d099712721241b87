// Package docs holds the swagger document served at /swagger/*
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Create an account",
                "description": "Creates a profile, seeds the default categories and returns tokens",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/RegisterRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Registered", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Email or username taken", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Log in",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "properties": {
                                "email": {"type": "string", "example": "ada@example.com"},
                                "password": {"type": "string", "example": "correct-horse"}
                            }
                        }
                    }
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "properties": {"refresh_token": {"type": "string"}}
                        }
                    }
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/AuthResponse"}},
                    "401": {"description": "Invalid refresh token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke all refresh tokens of the caller",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Logged out"}}
            }
        },
        "/todos": {
            "get": {
                "tags": ["Todos"],
                "summary": "List todos, newest first",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Todo"}}},
                    "401": {"description": "Unauthorized"}
                }
            },
            "post": {
                "tags": ["Todos"],
                "summary": "Create a todo with its categories",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateTodoRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Todo"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "500": {"description": "Category association failed; the todo was removed"}
                }
            }
        },
        "/todos/{id}": {
            "parameters": [{"in": "path", "name": "id", "required": true, "type": "string", "format": "uuid"}],
            "get": {
                "tags": ["Todos"],
                "summary": "Get one todo",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Todo"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Todos"],
                "summary": "Partially update a todo",
                "description": "Only keys present in the body are written. null clears a nullable field. category_ids, when present, replaces the whole set.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/UpdateTodoRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Todo"}},
                    "400": {"description": "Validation failed"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Todos"],
                "summary": "Delete a todo and its category associations",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/categories": {
            "get": {
                "tags": ["Categories"],
                "summary": "List categories by name",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Category"}}}
                }
            },
            "post": {
                "tags": ["Categories"],
                "summary": "Create a category",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "type": "object",
                            "properties": {
                                "name": {"type": "string", "example": "Work"},
                                "color": {"type": "string", "example": "#FDE1D3"}
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Category"}}
                }
            }
        },
        "/categories/defaults": {
            "post": {
                "tags": ["Categories"],
                "summary": "Seed the default categories when the caller has none",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "created is false when categories already existed"}}
            }
        },
        "/categories/{id}": {
            "parameters": [{"in": "path", "name": "id", "required": true, "type": "string", "format": "uuid"}],
            "patch": {
                "tags": ["Categories"],
                "summary": "Rename or recolor a category",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Category"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Categories"],
                "summary": "Delete a category; todos keep existing without it",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/profiles/search": {
            "get": {
                "tags": ["Profiles"],
                "summary": "Search usernames",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "q", "type": "string"}],
                "responses": {"200": {"description": "Up to five profiles"}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications, newest first",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string", "format": "uuid"}],
                "responses": {
                    "204": {"description": "Marked"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "Todo": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "title": {"type": "string"},
                "content": {"type": "string", "x-nullable": true},
                "completed": {"type": "boolean"},
                "image_url": {"type": "string", "x-nullable": true},
                "reminder": {"type": "string", "format": "date-time", "x-nullable": true},
                "location": {"$ref": "#/definitions/Location"},
                "urgency": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
                "category_ids": {"type": "array", "items": {"type": "string", "format": "uuid"}},
                "creator_id": {"type": "string", "format": "uuid"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "Location": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "lat": {"type": "number"},
                "lng": {"type": "number"}
            }
        },
        "CreateTodoRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string"},
                "content": {"type": "string"},
                "completed": {"type": "boolean"},
                "image_url": {"type": "string"},
                "reminder": {"type": "string", "format": "date-time"},
                "location": {"$ref": "#/definitions/Location"},
                "urgency": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
                "category_ids": {"type": "array", "items": {"type": "string", "format": "uuid"}}
            }
        },
        "UpdateTodoRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "content": {"type": "string", "x-nullable": true},
                "completed": {"type": "boolean"},
                "image_url": {"type": "string", "x-nullable": true},
                "reminder": {"type": "string", "format": "date-time", "x-nullable": true},
                "location": {"$ref": "#/definitions/Location"},
                "urgency": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
                "category_ids": {"type": "array", "items": {"type": "string", "format": "uuid"}}
            }
        },
        "Category": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "name": {"type": "string"},
                "color": {"type": "string"},
                "user_id": {"type": "string", "format": "uuid"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "username", "password"],
            "properties": {
                "email": {"type": "string"},
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "AuthResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Todos API",
	Description:      "Personal todo lists with categories",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
