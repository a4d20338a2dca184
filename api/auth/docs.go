// Package auth provides the generated OpenAPI document for the
// authentication service, served at /swagger/.
package auth

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Microplate Platform Team",
            "url": "https://github.com/microplate/platform"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/livez": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "status, uptime, version"}
                }
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "status"},
                    "503": {"description": "status"}
                }
            }
        },
        "/v1/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Login",
                "responses": {
                    "200": {"description": "access_token, refresh_token, token_type, expires_in"},
                    "400": {"description": "error, error_description"},
                    "401": {"description": "error, error_description"}
                }
            }
        },
        "/v1/auth/refresh": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Refresh session",
                "responses": {
                    "200": {"description": "access_token, refresh_token, token_type, expires_in"},
                    "401": {"description": "error, error_description"}
                }
            }
        },
        "/v1/auth/logout": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["Sessions"],
                "summary": "Logout",
                "responses": {
                    "204": {"description": "Session revoked"}
                }
            }
        },
        "/v1/auth/userinfo": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "User info",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "id, email, username, roles"},
                    "401": {"description": "error, error_description"}
                }
            }
        },
        "/v1/auth/forgot-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Password"],
                "summary": "Request password reset",
                "responses": {
                    "200": {"description": "message"}
                }
            }
        },
        "/v1/auth/reset-password": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["Password"],
                "summary": "Reset password",
                "responses": {
                    "204": {"description": "Password updated"},
                    "400": {"description": "error, error_description"}
                }
            }
        },
        "/v1/auth/sso/issue": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["SSO"],
                "summary": "Issue SSO exchange token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "exchange_token, expires_in"},
                    "401": {"description": "error, error_description"}
                }
            }
        },
        "/v1/auth/sso/exchange": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["SSO"],
                "summary": "Redeem SSO exchange token",
                "responses": {
                    "200": {"description": "access_token, refresh_token, token_type, expires_in, continue_url"},
                    "401": {"description": "error, error_description"}
                }
            }
        },
        "/v1/auth/otp/generate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["OTP"],
                "summary": "Generate OTP",
                "responses": {
                    "200": {"description": "otp_token"},
                    "400": {"description": "error, error_description"}
                }
            }
        },
        "/v1/auth/otp/verify": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["OTP"],
                "summary": "Verify OTP",
                "responses": {
                    "200": {"description": "is_valid, user_id"}
                }
            }
        },
        "/v1/auth/otp/resend": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["OTP"],
                "summary": "Resend OTP",
                "responses": {
                    "200": {"description": "otp_token"},
                    "429": {"description": "error, error_description"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Microplate Authentication Service API",
	Description:      "Token issuance and session rotation: login, refresh token rotation with reuse detection, password reset, SSO session handoff and one-time codes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
