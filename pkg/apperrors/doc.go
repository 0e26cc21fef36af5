// Package apperrors defines the error taxonomy shared by every estatehub service.
//
// Every failure raised by the access-control core carries a stable machine-readable
// code and a human-readable message:
//
//	VALIDATION_ERROR     malformed request (bad page, limit, enum value)
//	AUTHENTICATION_ERROR token missing, malformed or expired
//	FORBIDDEN            role hierarchy denies the action
//	NOT_FOUND            absent in-tenant, or present in another tenant
//	CONFLICT             uniqueness violation within a tenant
//	INTERNAL_ERROR       persistence failure; detail is logged, never returned
//
// The HTTP layer maps codes to status codes with HTTPStatus and renders
// PublicMessage, so internal detail never reaches a response.
package apperrors
