package integrations

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
)

// Status is the lifecycle state of an integration credential
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusRevoked  Status = "REVOKED"
)

var validStatuses = []Status{StatusActive, StatusInactive, StatusRevoked}

// ExternalSystemAuth is an API credential a tenant issues to an outside system,
// such as a listing portal or a CRM. Only the hash of the key is kept.
type ExternalSystemAuth struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenantId"`
	System        string            `json:"system"`
	Name          string            `json:"name"`
	Status        Status            `json:"status"`
	Config        map[string]string `json:"config,omitempty"`
	KeyHash       string            `json:"-"`
	TokenPrefix   string            `json:"tokenPrefix"`
	CreatedBy     string            `json:"createdBy"`
	LastRotatedAt *time.Time        `json:"lastRotatedAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (e *ExternalSystemAuth) GetID() string { return e.ID }
func (e *ExternalSystemAuth) GetTenantID() string { return e.TenantID }
func (e *ExternalSystemAuth) GetCreatedAt() time.Time { return e.CreatedAt }
func (e *ExternalSystemAuth) GetUpdatedAt() time.Time { return e.UpdatedAt }

// SetIdentity implements resource.Entity
func (e *ExternalSystemAuth) SetIdentity(id, tenantID string) {
	e.ID = id
	e.TenantID = tenantID
}

// SetTimestamps implements resource.Entity
func (e *ExternalSystemAuth) SetTimestamps(createdAt, updatedAt time.Time) {
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt
}

// Credential is returned by create and rotate. APIKey is shown only once.
type Credential struct {
	Integration *ExternalSystemAuth `json:"integration"`
	APIKey      string              `json:"apiKey"`
}

// CreateIntegrationRequest is the body of an integration create call
type CreateIntegrationRequest struct {
	System   string            `json:"system"`
	Name     string            `json:"name"`
	Config   map[string]string `json:"config,omitempty"`
	TenantID string            `json:"tenantId,omitempty"`
}

// IntegrationPatch lists the fields an update may change
type IntegrationPatch struct {
	Name   *string            `json:"name,omitempty"`
	Status *Status            `json:"status,omitempty"`
	Config *map[string]string `json:"config,omitempty"`
}

// Validate implements resource.Patch
func (p *IntegrationPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperrors.Validation("name must not be empty")
	}
	if p.Status != nil && !slices.Contains(validStatuses, Status(strings.ToUpper(string(*p.Status)))) {
		return apperrors.Validation("invalid status %q", string(*p.Status))
	}
	if len(p.Fields()) == 0 {
		return apperrors.Validation("no fields to update")
	}
	return nil
}

// Apply implements resource.Patch
func (p *IntegrationPatch) Apply(e *ExternalSystemAuth) {
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
	}
	if p.Status != nil {
		e.Status = Status(strings.ToUpper(string(*p.Status)))
	}
	if p.Config != nil {
		e.Config = make(map[string]string, len(*p.Config))
		for k, v := range *p.Config {
			e.Config[k] = v
		}
	}
}

// AffectsRole implements resource.Patch
func (p *IntegrationPatch) AffectsRole() bool { return false }

// Fields implements resource.Patch
func (p *IntegrationPatch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Config != nil {
		fields = append(fields, "config")
	}
	return fields
}

// rotatePatch swaps in a new key. It counts as role-affecting, so only actors
// who outrank the creator may rotate.
type rotatePatch struct {
	hash   string
	prefix string
	at     time.Time
}

func (p *rotatePatch) Validate() error { return nil }

func (p *rotatePatch) Apply(e *ExternalSystemAuth) {
	at := p.at
	e.KeyHash = p.hash
	e.TokenPrefix = p.prefix
	e.LastRotatedAt = &at
}

func (p *rotatePatch) AffectsRole() bool { return true }

func (p *rotatePatch) Fields() []string { return []string{"credentials"} }

type integrationFields ExternalSystemAuth

type storedIntegration struct {
	integrationFields
	KeyHash string `json:"keyHash"`
}

// integrationCodec persists the key hash hidden from API responses
type integrationCodec struct{}

func (integrationCodec) Encode(e *ExternalSystemAuth) (json.RawMessage, error) {
	return json.Marshal(storedIntegration{integrationFields: integrationFields(*e), KeyHash: e.KeyHash})
}

func (integrationCodec) Decode(data json.RawMessage) (*ExternalSystemAuth, error) {
	var s storedIntegration
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	e := ExternalSystemAuth(s.integrationFields)
	e.KeyHash = s.KeyHash
	return &e, nil
}

func normalizeSystem(system string) string {
	return strings.ToLower(strings.TrimSpace(system))
}

func validateIntegration(e *ExternalSystemAuth) error {
	if e.System == "" {
		return apperrors.Validation("system is required")
	}
	if e.Name == "" {
		return apperrors.Validation("name is required")
	}
	if !slices.Contains(validStatuses, e.Status) {
		return apperrors.Validation("invalid status %q", string(e.Status))
	}
	if e.KeyHash == "" {
		return apperrors.Validation("credential is missing")
	}
	return nil
}
