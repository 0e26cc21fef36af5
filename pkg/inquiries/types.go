package inquiries

import (
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
)

// Status is the handling state of an inquiry
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResponded  Status = "RESPONDED"
	StatusClosed     Status = "CLOSED"
)

// Priority orders inquiries for follow-up
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Source is the channel an inquiry arrived through
type Source string

const (
	SourceWebsite  Source = "WEBSITE"
	SourcePhone    Source = "PHONE"
	SourceEmail    Source = "EMAIL"
	SourceWalkIn   Source = "WALK_IN"
	SourceReferral Source = "REFERRAL"
	SourceOther    Source = "OTHER"
)

var (
	validStatuses   = []Status{StatusNew, StatusInProgress, StatusResponded, StatusClosed}
	validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	validSources    = []Source{SourceWebsite, SourcePhone, SourceEmail, SourceWalkIn, SourceReferral, SourceOther}
)

// Inquiry is a prospect's message about a property
type Inquiry struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	PropertyID string    `json:"propertyId,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Status     Status    `json:"status"`
	Priority   Priority  `json:"priority"`
	Source     Source    `json:"source"`
	AssignedTo string    `json:"assignedTo,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (i *Inquiry) GetID() string { return i.ID }
func (i *Inquiry) GetTenantID() string { return i.TenantID }
func (i *Inquiry) GetCreatedAt() time.Time { return i.CreatedAt }
func (i *Inquiry) GetUpdatedAt() time.Time { return i.UpdatedAt }

// SetIdentity implements resource.Entity
func (i *Inquiry) SetIdentity(id, tenantID string) {
	i.ID = id
	i.TenantID = tenantID
}

// SetTimestamps implements resource.Entity
func (i *Inquiry) SetTimestamps(createdAt, updatedAt time.Time) {
	i.CreatedAt = createdAt
	i.UpdatedAt = updatedAt
}

// CreateInquiryRequest is the body of an inquiry create call
type CreateInquiryRequest struct {
	PropertyID string   `json:"propertyId,omitempty"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone,omitempty"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
	Priority   Priority `json:"priority,omitempty"`
	Source     Source   `json:"source,omitempty"`
	AssignedTo string   `json:"assignedTo,omitempty"`
	TenantID   string   `json:"tenantId,omitempty"`
}

// Inquiry builds the record described by the request. TenantID is dropped.
func (r CreateInquiryRequest) Inquiry() *Inquiry {
	i := &Inquiry{
		PropertyID: r.PropertyID,
		Name:       strings.TrimSpace(r.Name),
		Email:      strings.ToLower(strings.TrimSpace(r.Email)),
		Phone:      r.Phone,
		Subject:    strings.TrimSpace(r.Subject),
		Message:    strings.TrimSpace(r.Message),
		Status:     StatusNew,
		Priority:   Priority(strings.ToUpper(string(r.Priority))),
		Source:     Source(strings.ToUpper(string(r.Source))),
		AssignedTo: r.AssignedTo,
	}
	if i.Priority == "" {
		i.Priority = PriorityMedium
	}
	if i.Source == "" {
		i.Source = SourceWebsite
	}
	return i
}

// InquiryPatch lists the fields staff may change. A nil field is left unchanged.
type InquiryPatch struct {
	Status     *Status   `json:"status,omitempty"`
	Priority   *Priority `json:"priority,omitempty"`
	AssignedTo *string   `json:"assignedTo,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	PropertyID *string   `json:"propertyId,omitempty"`
}

// Validate implements resource.Patch
func (p *InquiryPatch) Validate() error {
	if p.Status != nil && !slices.Contains(validStatuses, Status(strings.ToUpper(string(*p.Status)))) {
		return apperrors.Validation("invalid status %q", string(*p.Status))
	}
	if p.Priority != nil && !slices.Contains(validPriorities, Priority(strings.ToUpper(string(*p.Priority)))) {
		return apperrors.Validation("invalid priority %q", string(*p.Priority))
	}
	if len(p.Fields()) == 0 {
		return apperrors.Validation("no fields to update")
	}
	return nil
}

// Apply implements resource.Patch
func (p *InquiryPatch) Apply(i *Inquiry) {
	if p.Status != nil {
		i.Status = Status(strings.ToUpper(string(*p.Status)))
	}
	if p.Priority != nil {
		i.Priority = Priority(strings.ToUpper(string(*p.Priority)))
	}
	if p.AssignedTo != nil {
		i.AssignedTo = *p.AssignedTo
	}
	if p.Notes != nil {
		i.Notes = *p.Notes
	}
	if p.PropertyID != nil {
		i.PropertyID = *p.PropertyID
	}
}

// AffectsRole implements resource.Patch. Reassignment changes who holds the inquiry.
func (p *InquiryPatch) AffectsRole() bool {
	return p.AssignedTo != nil
}

// Fields implements resource.Patch
func (p *InquiryPatch) Fields() []string {
	var fields []string
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.AssignedTo != nil {
		fields = append(fields, "assignedTo")
	}
	if p.Notes != nil {
		fields = append(fields, "notes")
	}
	if p.PropertyID != nil {
		fields = append(fields, "propertyId")
	}
	return fields
}

func validateInquiry(i *Inquiry) error {
	if i.Name == "" {
		return apperrors.Validation("name is required")
	}
	if addr, err := mail.ParseAddress(i.Email); err != nil || addr.Address != i.Email {
		return apperrors.Validation("invalid email %q", i.Email)
	}
	if i.Subject == "" || i.Message == "" {
		return apperrors.Validation("subject and message are required")
	}
	if !slices.Contains(validPriorities, i.Priority) {
		return apperrors.Validation("invalid priority %q", string(i.Priority))
	}
	if !slices.Contains(validSources, i.Source) {
		return apperrors.Validation("invalid source %q", string(i.Source))
	}
	return nil
}
