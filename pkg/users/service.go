package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/audit"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/contextkeys"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/query"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
)

const errInvalidCredentials = "invalid credentials"

// Schema returns the query schema for users
func Schema() *query.Schema[*User] {
	return query.NewSchema[*User](string(storage.KindUsers)).
		String("role", func(u *User) string { return string(u.Role) }, query.Filterable|query.Sortable).
		Bool("isActive", func(u *User) bool { return u.IsActive }, query.Filterable).
		String("name", func(u *User) string { return u.Name }, query.Sortable).
		String("email", func(u *User) string { return u.Email }, query.Sortable).
		String("phone", func(u *User) string { return u.Phone }, 0).
		Time("lastLoginAt", func(u *User) time.Time {
			if u.LastLoginAt == nil {
				return time.Time{}
			}
			return *u.LastLoginAt
		}, query.Sortable).
		Time("createdAt", func(u *User) time.Time { return u.CreatedAt }, query.Sortable).
		Time("updatedAt", func(u *User) time.Time { return u.UpdatedAt }, query.Sortable).
		Search("name", "email")
}

// Policy returns the access policy for users.
//
// Managers and above create users at or below their own level. Users may edit
// their own profile; everyone else needs to strictly outrank the target, and a
// role change must also be a role the actor could create.
func Policy() resource.Policy[*User] {
	return resource.Policy[*User]{
		Kind:       storage.KindUsers,
		Name:       "user",
		Schema:     Schema(),
		CreateRole: rbac.RoleManager,
		UpdateRole: rbac.RoleManager,
		DeleteRole: rbac.RoleManager,
		Subject: func(_ context.Context, u *User) (rbac.Role, error) {
			return u.Role, nil
		},
		SelfUpdate: func(actor auth.Actor, u *User) bool {
			return actor.ID == u.ID
		},
		Validate: validateUser,
		Conflicts: func(existing, candidate *User) bool {
			return strings.EqualFold(existing.Email, candidate.Email)
		},
		ConflictMessage: "email already in use",
		AuthorizeCreate: func(_ context.Context, actor auth.Actor, u *User) error {
			if !rbac.CanCreateWithRole(actor.Role, u.Role) {
				return apperrors.Forbidden("cannot create a user with role " + string(u.Role))
			}
			return nil
		},
		AuthorizeUpdate: authorizeUpdate,
	}
}

func authorizeUpdate(_ context.Context, actor auth.Actor, current *User, patch resource.Patch[*User]) error {
	p, isUserPatch := patch.(*UserPatch)

	if actor.ID == current.ID {
		if isUserPatch && (p.Email != nil || p.Role != nil || p.IsActive != nil) {
			return apperrors.Forbidden("cannot change own email, role or status")
		}
		return nil
	}

	if _, isPassword := patch.(*passwordPatch); isPassword {
		return apperrors.Forbidden("cannot change another user's password")
	}
	if !rbac.CanActOn(actor.Role, current.Role) {
		return apperrors.Forbidden("insufficient permissions")
	}
	if isUserPatch && p.Role != nil && !rbac.CanCreateWithRole(actor.Role, *p.Role) {
		return apperrors.Forbidden("cannot assign role " + string(*p.Role))
	}
	return nil
}

// Service manages users and signs them in
type Service struct {
	*resource.Service[*User]

	repo     *storage.Repository[*User]
	hasher   *auth.PasswordHasher
	sessions *auth.SessionCodec
	logger   *observability.Logger
	metrics  *observability.Metrics
	audit    audit.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates the user service
func NewService(store storage.Store, hasher *auth.PasswordHasher, sessions *auth.SessionCodec, deps resource.Deps) *Service {
	repo := storage.NewRepositoryWithCodec[*User](store, storage.KindUsers, userCodec{})
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if deps.Audit == nil {
		deps.Audit = audit.NoOp()
	}

	return &Service{
		Service:  resource.NewService(repo, Policy(), deps),
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		logger:   deps.Logger.WithField("component", "users"),
		metrics:  deps.Metrics,
		audit:    deps.Audit,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a user to the actor's tenant
func (s *Service) Create(ctx context.Context, actor auth.Actor, req CreateUserRequest) (*User, error) {
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return s.Service.Create(ctx, actor, &User{
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		AvatarURL:    req.AvatarURL,
		Role:         req.Role,
		IsActive:     active,
		PasswordHash: hash,
	})
}

// Me returns the actor's own user record
func (s *Service) Me(ctx context.Context, actor auth.Actor) (*User, error) {
	return s.Get(ctx, actor, actor.ID)
}

// UpdateProfile applies the profile whitelist to the actor's own record
func (s *Service) UpdateProfile(ctx context.Context, actor auth.Actor, patch *ProfilePatch) (*User, error) {
	return s.Update(ctx, actor, actor.ID, patch)
}

// ChangePassword replaces the actor's own password after verifying the current one
func (s *Service) ChangePassword(ctx context.Context, actor auth.Actor, req ChangePasswordRequest) error {
	current, err := s.Get(ctx, actor, actor.ID)
	if err != nil {
		return err
	}

	if err := s.hasher.Verify(current.PasswordHash, req.CurrentPassword); err != nil {
		s.logEvent(ctx, actor, audit.EventTypeAuthPasswordChange, audit.EventStatusFailure, "current password mismatch")
		return apperrors.Authentication("current password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if _, err := s.Update(ctx, actor, actor.ID, &passwordPatch{hash: hash}); err != nil {
		return err
	}
	s.logEvent(ctx, actor, audit.EventTypeAuthPasswordChange, audit.EventStatusSuccess, "")
	return nil
}

// Authenticate verifies credentials within a tenant and issues a session.
// Unknown emails, wrong passwords and inactive users all fail with the same error.
func (s *Service) Authenticate(ctx context.Context, creds auth.Credentials) (auth.Session, error) {
	if creds.TenantID == "" || creds.Email == "" || creds.Password == "" {
		return auth.Session{}, apperrors.Validation("tenant_id, email and password are required")
	}

	user, err := s.findByEmail(ctx, creds.TenantID, creds.Email)
	if err != nil {
		return auth.Session{}, apperrors.Persistence("users.authenticate", err)
	}

	if user == nil {
		// Spend the same bcrypt time as a real check
		_ = s.hasher.Verify(s.dummy(), creds.Password)
		return auth.Session{}, s.loginFailed(ctx, creds, "", "unknown email")
	}
	if err := s.hasher.Verify(user.PasswordHash, creds.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.WithError(err).Warn("password verification failed")
		}
		return auth.Session{}, s.loginFailed(ctx, creds, user.ID, "password mismatch")
	}
	if !user.IsActive {
		return auth.Session{}, s.loginFailed(ctx, creds, user.ID, "inactive user")
	}

	now := s.now()
	user.LastLoginAt = &now
	if _, err := s.repo.Put(ctx, user); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}

	actor := auth.Actor{ID: user.ID, TenantID: user.TenantID, Role: user.Role, IsActive: user.IsActive}
	token, expiresAt, err := s.sessions.Issue(actor)
	if err != nil {
		return auth.Session{}, apperrors.Persistence("users.issue_session", err)
	}

	s.metrics.RecordLogin("success")
	s.logEvent(ctx, actor, audit.EventTypeAuthLogin, audit.EventStatusSuccess, "")

	return auth.Session{Token: token, ExpiresAt: expiresAt.Unix(), Actor: actor}, nil
}

// Bootstrap creates a user without an acting user. It is meant for provisioning
// the first administrator of a tenant and refuses duplicate emails.
func (s *Service) Bootstrap(ctx context.Context, tenantID string, req CreateUserRequest) (*User, error) {
	if tenantID == "" {
		return nil, apperrors.Validation("tenant id is required")
	}
	existing, err := s.findByEmail(ctx, tenantID, req.Email)
	if err != nil {
		return nil, apperrors.Persistence("users.bootstrap", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("email already in use")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &User{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Email:        normalizeEmail(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		AvatarURL:    req.AvatarURL,
		Role:         req.Role,
		IsActive:     true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validateUser(u); err != nil {
		return nil, err
	}
	if _, err := s.repo.Put(ctx, u); err != nil {
		return nil, apperrors.Persistence("users.bootstrap", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"tenant_id": tenantID,
		"user_id":   u.ID,
		"role":      string(u.Role),
	}).Info("bootstrapped user")
	return u, nil
}

// RoleOf returns the role of a user in tenantID. found is false when the user
// does not exist in that tenant.
func (s *Service) RoleOf(ctx context.Context, tenantID, userID string) (role rbac.Role, found bool, err error) {
	if userID == "" {
		return "", false, nil
	}
	u, ok, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if !ok || u.TenantID != tenantID {
		return "", false, nil
	}
	return u.Role, true, nil
}

func (s *Service) findByEmail(ctx context.Context, tenantID, email string) (*User, error) {
	all, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	for _, u := range all {
		if u.TenantID == tenantID && strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (s *Service) loginFailed(ctx context.Context, creds auth.Credentials, userID, reason string) error {
	s.metrics.RecordLogin("failure")

	ev := audit.NewEvent(ctx, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure)
	ev.ActorID = userID
	ev.TenantID = creds.TenantID
	ev.Kind = string(storage.KindUsers)
	ev.Reason = reason
	if err := s.audit.Log(ctx, ev); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}
	return apperrors.Authentication(errInvalidCredentials)
}

func (s *Service) logEvent(ctx context.Context, actor auth.Actor, action audit.EventType, outcome audit.EventStatus, reason string) {
	ev := audit.NewEvent(ctx, action, outcome)
	ev.ActorID = actor.ID
	ev.TenantID = actor.TenantID
	ev.Role = string(actor.Role)
	ev.Kind = string(storage.KindUsers)
	ev.ResourceID = actor.ID
	ev.Reason = reason
	if err := s.audit.Log(ctx, ev); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("estatehub-timing-equalizer")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Resolve reloads the actor a session was issued to. Deleted or deactivated
// users are rejected and the current role replaces the one in the token.
func (s *Service) Resolve(ctx context.Context, actor auth.Actor) (auth.Actor, error) {
	u, found, err := s.repo.Get(contextkeys.WithoutRecordCache(ctx), actor.ID)
	if err != nil {
		return auth.Actor{}, apperrors.Persistence("users.resolve", err)
	}
	if !found || u.TenantID != actor.TenantID || !u.IsActive {
		return auth.Actor{}, apperrors.Authentication("session is no longer valid")
	}
	return auth.Actor{ID: u.ID, TenantID: u.TenantID, Role: u.Role, IsActive: u.IsActive}, nil
}
