// Package docs holds the OpenAPI document served under /swagger/.
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
		"/users/{userID}/events": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "Create an event",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					},
					{
						"description": "Event data",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.CreateEventRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "data contains the created event",
						"schema": {
							"$ref": "#/definitions/controllers.EventSuccessResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"description": "Creates an event in PENDING state owned by the user. event_date must be more than two hours ahead."
			},
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "List the user's events",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"default": 0,
						"description": "Rows to skip",
						"name": "from",
						"in": "query"
					},
					{
						"type": "integer",
						"default": 10,
						"description": "Page size (max 100)",
						"name": "size",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/controllers.EventListSuccessResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/users/{userID}/events/{eventID}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "Get one of the user's events",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Event ID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/controllers.EventSuccessResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			},
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "Update an event",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Event ID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					},
					{
						"description": "Fields to update (all optional)",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.UpdateEventRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/controllers.EventSuccessResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: conflict (event is published)",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"description": "Partial update by the organizer. Published events cannot be changed. state_action may be SEND_TO_REVIEW or CANCEL_REVIEW."
			}
		},
		"/users/{userID}/events/{eventID}/requests": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "List join requests for an event",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Event ID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/controllers.RequestListSuccessResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			},
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "Confirm or reject join requests",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Event ID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					},
					{
						"description": "Request ids and target status",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.StatusUpdateRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/controllers.StatusUpdateResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: conflict; data set when capacity ran out part way",
						"schema": {
							"$ref": "#/definitions/controllers.StatusUpdateResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"description": "Resolves the listed requests in order. Confirming stops at the first request that finds the event full: that request is rejected and the call returns 409 with the partial result."
			}
		},
		"/users/{userID}/requests": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "Request to join an event",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Event ID (UUID)",
						"name": "eventId",
						"in": "query",
						"required": true
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/controllers.RequestSuccessResponse"
						}
					},
					"409": {
						"description": "error.code: conflict",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"429": {
						"description": "error.code: too_many_requests",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			},
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "List the user's join requests",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/controllers.RequestListSuccessResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/users/{userID}/requests/{requestID}/cancel": {
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"requests"
				],
				"summary": "Cancel a pending join request",
				"parameters": [
					{
						"type": "string",
						"description": "User ID (UUID)",
						"name": "userID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Request ID (UUID)",
						"name": "requestID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/controllers.RequestSuccessResponse"
						}
					},
					"409": {
						"description": "error.code: conflict (request already resolved)",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/admin/events/{eventID}": {
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Publish or reject an event",
				"parameters": [
					{
						"type": "string",
						"description": "Event ID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					},
					{
						"description": "Admin action",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.ModerateEventRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/controllers.EventSuccessResponse"
						}
					},
					"409": {
						"description": "error.code: conflict",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"description": "PUBLISH_EVENT moves a PENDING event starting more than an hour from now to PUBLISHED. REJECT_EVENT cancels any event that is not published."
			}
		}
	},
	"definitions": {
		"helpers.APIError": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"helpers.APIResponse": {
			"type": "object",
			"properties": {
				"data": {},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
			}
		},
		"controllers.LocationDTO": {
			"type": "object",
			"properties": {
				"lat": {
					"type": "number"
				},
				"lon": {
					"type": "number"
				}
			}
		},
		"controllers.CreateEventRequest": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"annotation": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"location": {
					"$ref": "#/definitions/controllers.LocationDTO"
				},
				"paid": {
					"type": "boolean"
				},
				"participant_limit": {
					"type": "integer"
				},
				"request_moderation": {
					"type": "boolean"
				},
				"event_date": {
					"type": "string"
				}
			}
		},
		"controllers.UpdateEventRequest": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"annotation": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"location": {
					"$ref": "#/definitions/controllers.LocationDTO"
				},
				"paid": {
					"type": "boolean"
				},
				"participant_limit": {
					"type": "integer"
				},
				"request_moderation": {
					"type": "boolean"
				},
				"event_date": {
					"type": "string"
				},
				"state_action": {
					"type": "string",
					"enum": [
						"SEND_TO_REVIEW",
						"CANCEL_REVIEW"
					]
				}
			}
		},
		"controllers.StatusUpdateRequest": {
			"type": "object",
			"properties": {
				"request_ids": {
					"type": "array",
					"items": {
						"type": "string"
					}
				},
				"status": {
					"type": "string",
					"enum": [
						"CONFIRMED",
						"REJECTED"
					]
				}
			}
		},
		"controllers.ModerateEventRequest": {
			"type": "object",
			"properties": {
				"state_action": {
					"type": "string",
					"enum": [
						"PUBLISH_EVENT",
						"REJECT_EVENT"
					]
				}
			}
		},
		"domain.Location": {
			"type": "object",
			"properties": {
				"lat": {
					"type": "number"
				},
				"lon": {
					"type": "number"
				}
			}
		},
		"domain.Event": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"title": {
					"type": "string"
				},
				"annotation": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"category_id": {
					"type": "string"
				},
				"initiator_id": {
					"type": "string"
				},
				"location": {
					"$ref": "#/definitions/domain.Location"
				},
				"paid": {
					"type": "boolean"
				},
				"participant_limit": {
					"type": "integer"
				},
				"request_moderation": {
					"type": "boolean"
				},
				"state": {
					"type": "string",
					"enum": [
						"PENDING",
						"PUBLISHED",
						"CANCELED"
					]
				},
				"event_date": {
					"type": "string"
				},
				"created_on": {
					"type": "string"
				},
				"published_on": {
					"type": "string"
				},
				"confirmed_requests": {
					"type": "integer"
				}
			}
		},
		"domain.ParticipationRequest": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"event": {
					"type": "string"
				},
				"requester": {
					"type": "string"
				},
				"status": {
					"type": "string",
					"enum": [
						"PENDING",
						"CONFIRMED",
						"REJECTED",
						"CANCELED"
					]
				},
				"created": {
					"type": "string"
				}
			}
		},
		"domain.StatusUpdateResult": {
			"type": "object",
			"properties": {
				"confirmed_requests": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/domain.ParticipationRequest"
					}
				},
				"rejected_requests": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/domain.ParticipationRequest"
					}
				}
			}
		},
		"controllers.EventSuccessResponse": {
			"type": "object",
			"properties": {
				"data": {
					"$ref": "#/definitions/domain.Event"
				},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
			}
		},
		"controllers.EventListSuccessResponse": {
			"type": "object",
			"properties": {
				"data": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/domain.Event"
					}
				},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
			}
		},
		"controllers.RequestSuccessResponse": {
			"type": "object",
			"properties": {
				"data": {
					"$ref": "#/definitions/domain.ParticipationRequest"
				},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
			}
		},
		"controllers.RequestListSuccessResponse": {
			"type": "object",
			"properties": {
				"data": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/domain.ParticipationRequest"
					}
				},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
			}
		},
		"controllers.StatusUpdateResponse": {
			"type": "object",
			"properties": {
				"data": {
					"$ref": "#/definitions/domain.StatusUpdateResult"
				},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
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
	Title:            "Event participation API",
	Description:      "Event lifecycle and capacity-bounded admission of join requests.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
