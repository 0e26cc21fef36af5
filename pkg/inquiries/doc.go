// Package inquiries tracks prospect inquiries about listings.
//
// Any user of a tenant may log an inquiry. Triage (status, priority, notes,
// assignment) is done by agents and above. An inquiry assigned to an agent is
// held at that agent's role, so handing it to someone else or deleting it
// requires outranking the assignee. Unassigned inquiries can be picked up by
// any agent.
package inquiries
