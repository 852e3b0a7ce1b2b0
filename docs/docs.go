// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go
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
        "/": {
            "get": {
                "description": "Returns latitude, longitude, country and city for an IPv4 or full-form IPv6 address",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Geolocation"
                ],
                "summary": "Geolocate an IP address",
                "parameters": [
                    {
                        "type": "string",
                        "example": "66.249.68.102",
                        "description": "IPv4 or full-form IPv6 address",
                        "name": "ip",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.GeoLocation"
                        }
                    },
                    "400": {
                        "description": "Invalid IP format",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "No data for this IP",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    },
                    "429": {
                        "description": "Rate limit exceeded",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "models.ErrorPointer": {
            "type": "object",
            "properties": {
                "pointer": {
                    "type": "string",
                    "example": "/?ip=tytytytytyty"
                }
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "detail": {
                    "type": "string",
                    "example": "Ошибка формата ip"
                },
                "source": {
                    "$ref": "#/definitions/models.ErrorPointer"
                },
                "status": {
                    "type": "integer",
                    "example": 400
                },
                "title": {
                    "type": "string",
                    "example": "Bad Request"
                }
            }
        },
        "models.GeoLocation": {
            "type": "object",
            "properties": {
                "city": {
                    "description": "City name",
                    "type": "string",
                    "example": "Mountain View"
                },
                "country": {
                    "description": "ISO country code",
                    "type": "string",
                    "example": "US"
                },
                "lat": {
                    "description": "Latitude, decimal string",
                    "type": "string",
                    "example": "37.4"
                },
                "lng": {
                    "description": "Longitude, decimal string",
                    "type": "string",
                    "example": "-122.1"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GeoIP Service API",
	Description:      "Resolves IPv4 and full-form IPv6 addresses to coordinates, country and city.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
