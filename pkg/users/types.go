package users

import (
	"encoding/json"
	"net/mail"
	"strings"
	"time"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/rbac"
)

// User is a member of a tenant
type User struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Role        rbac.Role  `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// PasswordHash is persisted by the storage codec but never rendered
	PasswordHash string `json:"-"`
}

func (u *User) GetID() string { return u.ID }
func (u *User) GetTenantID() string { return u.TenantID }
func (u *User) GetCreatedAt() time.Time { return u.CreatedAt }
func (u *User) GetUpdatedAt() time.Time { return u.UpdatedAt }

// SetIdentity implements resource.Entity
func (u *User) SetIdentity(id, tenantID string) {
	u.ID = id
	u.TenantID = tenantID
}

// SetTimestamps implements resource.Entity
func (u *User) SetTimestamps(createdAt, updatedAt time.Time) {
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
}

// CreateUserRequest is the body of a user create call.
// TenantID is accepted for compatibility and always replaced by the actor's tenant.
type CreateUserRequest struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Role      rbac.Role `json:"role"`
	Password  string    `json:"password"`
	IsActive  *bool     `json:"isActive,omitempty"`
	TenantID  string    `json:"tenantId,omitempty"`
}

// ChangePasswordRequest is the body of a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserPatch is the set of fields a manager may change on a user.
// A nil field is left unchanged.
type UserPatch struct {
	Name      *string    `json:"name,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	AvatarURL *string    `json:"avatarUrl,omitempty"`
	Role      *rbac.Role `json:"role,omitempty"`
	IsActive  *bool      `json:"isActive,omitempty"`
}

// Validate implements resource.Patch
func (p *UserPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperrors.Validation("name must not be empty")
	}
	if p.Email != nil {
		if err := validateEmail(*p.Email); err != nil {
			return err
		}
	}
	if p.Role != nil && !p.Role.Valid() {
		return apperrors.Validation("invalid role %q", string(*p.Role))
	}
	if len(p.Fields()) == 0 {
		return apperrors.Validation("no fields to update")
	}
	return nil
}

// Apply implements resource.Patch
func (p *UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = normalizeEmail(*p.Email)
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}

// AffectsRole implements resource.Patch. Deactivation counts as role-affecting.
func (p *UserPatch) AffectsRole() bool {
	return p.Role != nil || p.IsActive != nil
}

// Fields implements resource.Patch
func (p *UserPatch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Email != nil {
		fields = append(fields, "email")
	}
	if p.Phone != nil {
		fields = append(fields, "phone")
	}
	if p.AvatarURL != nil {
		fields = append(fields, "avatarUrl")
	}
	if p.Role != nil {
		fields = append(fields, "role")
	}
	if p.IsActive != nil {
		fields = append(fields, "isActive")
	}
	return fields
}

// ProfilePatch is what users may change on their own record
type ProfilePatch struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// Validate implements resource.Patch
func (p *ProfilePatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperrors.Validation("name must not be empty")
	}
	if len(p.Fields()) == 0 {
		return apperrors.Validation("no fields to update")
	}
	return nil
}

// Apply implements resource.Patch
func (p *ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
}

// AffectsRole implements resource.Patch
func (p *ProfilePatch) AffectsRole() bool { return false }

// Fields implements resource.Patch
func (p *ProfilePatch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Phone != nil {
		fields = append(fields, "phone")
	}
	if p.AvatarURL != nil {
		fields = append(fields, "avatarUrl")
	}
	return fields
}

// passwordPatch replaces the stored hash. It is only built by ChangePassword.
type passwordPatch struct {
	hash string
}

func (p *passwordPatch) Validate() error {
	if p.hash == "" {
		return apperrors.Validation("password is required")
	}
	return nil
}

func (p *passwordPatch) Apply(u *User) { u.PasswordHash = p.hash }
func (p *passwordPatch) AffectsRole() bool { return false }
func (p *passwordPatch) Fields() []string { return []string{"password"} }

// storedUser is the persisted form of a User, which keeps the password hash
type storedUser struct {
	userFields
	PasswordHash string `json:"passwordHash"`
}

type userFields User

// userCodec persists the password hash that the API representation hides
type userCodec struct{}

func (userCodec) Encode(u *User) (json.RawMessage, error) {
	return json.Marshal(storedUser{userFields: userFields(*u), PasswordHash: u.PasswordHash})
}

func (userCodec) Decode(data json.RawMessage) (*User, error) {
	var s storedUser
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	u := User(s.userFields)
	u.PasswordHash = s.PasswordHash
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.Validation("invalid email %q", email)
	}
	return nil
}

func validateUser(u *User) error {
	if err := validateEmail(u.Email); err != nil {
		return err
	}
	if strings.TrimSpace(u.Name) == "" {
		return apperrors.Validation("name is required")
	}
	if !u.Role.Valid() {
		return apperrors.Validation("invalid role %q", string(u.Role))
	}
	return nil
}
