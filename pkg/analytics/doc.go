// Package analytics reports headline numbers for a tenant.
//
// The summary groups properties by status and listing type, inquiries by
// status and priority, and users by role and active flag. Counts go through
// the resource services, so they see exactly what the caller's tenant guard
// allows.
//
//	GET /api/v1/analytics/summary
//
//	{
//	  "properties": {"total": 12, "counts": {"status": {"AVAILABLE": 9, "SOLD": 3}, ...}},
//	  ...
//	}
package analytics
