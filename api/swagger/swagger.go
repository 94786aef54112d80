package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Pondok PSB API",
        "description": "Boarding school admissions workflow (PSB) service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Staff authentication"},
        {"name": "Periods", "description": "Admission period and fee schedule management"},
        {"name": "Admissions", "description": "Applicant registration and lifecycle"},
        {"name": "Students", "description": "Enrolled students materialized from applicants"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff member",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/periods": {
            "get": {
                "tags": ["Periods"],
                "summary": "List admission periods",
                "responses": {"200": {"description": "Periods"}}
            },
            "post": {
                "tags": ["Periods"],
                "summary": "Create admission period",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/periods/active": {
            "get": {
                "tags": ["Periods"],
                "summary": "Current active admission period",
                "responses": {
                    "200": {"description": "Active period"},
                    "404": {"description": "No active period"}
                }
            }
        },
        "/periods/{id}": {
            "get": {
                "tags": ["Periods"],
                "summary": "Period detail",
                "responses": {"200": {"description": "Period"}}
            },
            "put": {
                "tags": ["Periods"],
                "summary": "Update period, recomputing fee totals",
                "responses": {"200": {"description": "Updated"}}
            },
            "delete": {
                "tags": ["Periods"],
                "summary": "Delete period",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/applicants": {
            "get": {
                "tags": ["Admissions"],
                "summary": "List applicants",
                "responses": {"200": {"description": "Applicants"}}
            },
            "post": {
                "tags": ["Admissions"],
                "summary": "Register a new applicant",
                "responses": {"201": {"description": "Registered with sequential PSB number"}}
            }
        },
        "/applicants/{id}": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Applicant detail",
                "responses": {"200": {"description": "Applicant"}}
            }
        },
        "/applicants/{id}/verify-payment": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Verify or reject the registration payment",
                "responses": {"200": {"description": "Applicant updated"}}
            }
        },
        "/applicants/{id}/status": {
            "put": {
                "tags": ["Admissions"],
                "summary": "Manual lifecycle transition",
                "responses": {
                    "200": {"description": "Applicant updated"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/applicants/{id}/assign": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Assign applicant to institution and class",
                "responses": {"200": {"description": "Applicant assigned"}}
            }
        },
        "/applicants/{id}/decline": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Record offer decline",
                "responses": {"200": {"description": "Applicant declined"}}
            }
        },
        "/applicants/{id}/verify-reregistration": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Verify re-registration and convert to student",
                "responses": {
                    "200": {"description": "Applicant confirmed"},
                    "412": {"description": "Applicant not assigned"}
                }
            }
        },
        "/applicants/{id}/payment-proof": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Upload payment proof",
                "responses": {"200": {"description": "Proof stored"}}
            }
        },
        "/applicants/export": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Export applicant roster as CSV or PDF",
                "responses": {"200": {"description": "File download"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "responses": {"200": {"description": "Students"}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Student detail",
                "responses": {"200": {"description": "Student"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
