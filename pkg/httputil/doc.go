// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Envelope
//
// Every API response is wrapped:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": {"code": "NOT_FOUND", "message": "property not found"}}
//
// Handlers return taxonomy errors from pkg/apperrors and let WriteAppError pick the
// status code. Internal errors are logged and rendered as "internal server error".
//
//	result, err := svc.List(ctx, actor, spec)
//	httputil.WriteResult(w, r, http.StatusOK, result, err)
//
// # Request Parsing
//
//	var req users.CreateUserRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Unknown JSON fields are rejected.
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RecoveryMiddleware,
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication, role and rate limit middleware
package httputil
