package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "VidyaLink API",
        "description": "Multi-tenant school management backend with a fee lifecycle engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Tenants", "description": "School onboarding and lifecycle"},
        {"name": "Students", "description": "Student roster and enrollment"},
        {"name": "FeeCatalog", "description": "Fee frequency and category catalogs"},
        {"name": "FeeStructures", "description": "Fee structure definitions"},
        {"name": "Fees", "description": "Assignments, payments and summaries"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/tenants": {
            "post": {
                "tags": ["Tenants"],
                "summary": "Onboard a school with its first admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OnboardTenantRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Tenant code already taken"}
                }
            }
        },
        "/students": {
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Admission number already registered"}
                }
            }
        },
        "/fees/assignments": {
            "post": {
                "tags": ["Fees"],
                "summary": "Assign a fee structure to a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignFeeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Fee already assigned for the academic year"}
                }
            }
        },
        "/fees/payments": {
            "post": {
                "tags": ["Fees"],
                "summary": "Record a fee payment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Concurrent modification, retry"},
                    "422": {"description": "Amount exceeds outstanding balance"}
                }
            }
        },
        "/fees/summary/school": {
            "get": {
                "tags": ["Fees"],
                "summary": "School-wide fee collection summary",
                "parameters": [
                    {"name": "academic_year", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "OnboardTenantRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "code": {"type": "string"},
                "address": {"type": "string"},
                "phone": {"type": "string"},
                "admin_name": {"type": "string"},
                "admin_email": {"type": "string"},
                "admin_password": {"type": "string"}
            },
            "required": ["name", "code", "admin_name", "admin_email", "admin_password"]
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "admission_number": {"type": "string"},
                "class_id": {"type": "string"},
                "parent_id": {"type": "string"},
                "date_of_birth": {"type": "string"},
                "gender": {"type": "string"}
            },
            "required": ["name", "admission_number"]
        },
        "AssignFeeRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "fee_structure_id": {"type": "string"},
                "discount": {
                    "type": "object",
                    "properties": {
                        "amount": {"type": "string"},
                        "reason": {"type": "string"}
                    }
                }
            },
            "required": ["student_id", "fee_structure_id"]
        },
        "RecordPaymentRequest": {
            "type": "object",
            "properties": {
                "assignment_id": {"type": "string"},
                "amount": {"type": "string"},
                "method": {"type": "string"},
                "transaction_id": {"type": "string"},
                "remarks": {"type": "string"}
            },
            "required": ["assignment_id", "amount", "method"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
