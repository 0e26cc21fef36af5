package integrations

import (
	"context"
	"strings"
	"time"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/audit"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/query"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
)

const errInvalidKey = "invalid api key"

// Schema returns the query schema for integrations
func Schema() *query.Schema[*ExternalSystemAuth] {
	return query.NewSchema[*ExternalSystemAuth](string(storage.KindExternalSystemAuths)).
		String("system", func(e *ExternalSystemAuth) string { return e.System }, query.Filterable|query.Sortable).
		String("status", func(e *ExternalSystemAuth) string { return string(e.Status) }, query.Filterable|query.Sortable).
		String("name", func(e *ExternalSystemAuth) string { return e.Name }, query.Sortable).
		Time("lastRotatedAt", func(e *ExternalSystemAuth) time.Time {
			if e.LastRotatedAt == nil {
				return time.Time{}
			}
			return *e.LastRotatedAt
		}, query.Sortable).
		Time("createdAt", func(e *ExternalSystemAuth) time.Time { return e.CreatedAt }, query.Sortable).
		Time("updatedAt", func(e *ExternalSystemAuth) time.Time { return e.UpdatedAt }, query.Sortable).
		Search("name", "system")
}

// Policy returns the access policy for integrations. Every operation needs a
// manager, and a credential is held at the role of the user who created it.
func Policy(dir resource.Directory) resource.Policy[*ExternalSystemAuth] {
	return resource.Policy[*ExternalSystemAuth]{
		Kind:       storage.KindExternalSystemAuths,
		Name:       "integration",
		Schema:     Schema(),
		ReadRole:   rbac.RoleManager,
		CreateRole: rbac.RoleManager,
		UpdateRole: rbac.RoleManager,
		DeleteRole: rbac.RoleManager,
		Subject: func(ctx context.Context, e *ExternalSystemAuth) (rbac.Role, error) {
			return resource.MemberRole(ctx, dir, e.TenantID, e.CreatedBy)
		},
		Validate: validateIntegration,
		Conflicts: func(existing, candidate *ExternalSystemAuth) bool {
			return existing.System == candidate.System && strings.EqualFold(existing.Name, candidate.Name)
		},
		ConflictMessage: "an integration with this system and name already exists",
	}
}

// Service manages integration credentials
type Service struct {
	*resource.Service[*ExternalSystemAuth]

	repo   *storage.Repository[*ExternalSystemAuth]
	keys   *auth.KeyGenerator
	logger *observability.Logger
	audit  audit.Logger
	now    func() time.Time
}

// NewService creates the integration service. dir resolves credential creators.
func NewService(store storage.Store, dir resource.Directory, deps resource.Deps) *Service {
	repo := storage.NewRepositoryWithCodec[*ExternalSystemAuth](store, storage.KindExternalSystemAuths, integrationCodec{})
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if deps.Audit == nil {
		deps.Audit = audit.NoOp()
	}
	return &Service{
		Service: resource.NewService(repo, Policy(dir), deps),
		repo:    repo,
		keys:    auth.NewKeyGenerator(),
		logger:  deps.Logger.WithField("component", "integrations"),
		audit:   deps.Audit,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create registers an external system and returns its API key
func (s *Service) Create(ctx context.Context, actor auth.Actor, req CreateIntegrationRequest) (*Credential, error) {
	key, hash, prefix, err := s.keys.GenerateKey()
	if err != nil {
		return nil, apperrors.Persistence("integrations.generate_key", err)
	}

	e, err := s.Service.Create(ctx, actor, &ExternalSystemAuth{
		System:      normalizeSystem(req.System),
		Name:        strings.TrimSpace(req.Name),
		Status:      StatusActive,
		Config:      req.Config,
		KeyHash:     hash,
		TokenPrefix: prefix,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return nil, err
	}
	return &Credential{Integration: e, APIKey: key}, nil
}

// Rotate replaces the API key of an integration. The old key stops working
// immediately.
func (s *Service) Rotate(ctx context.Context, actor auth.Actor, id string) (*Credential, error) {
	key, hash, prefix, err := s.keys.GenerateKey()
	if err != nil {
		return nil, apperrors.Persistence("integrations.generate_key", err)
	}

	e, err := s.Update(ctx, actor, id, &rotatePatch{hash: hash, prefix: prefix, at: s.now()})
	if err != nil {
		return nil, err
	}

	ev := audit.NewEvent(ctx, audit.EventTypeKeyRotate, audit.EventStatusSuccess)
	ev.ActorID = actor.ID
	ev.TenantID = actor.TenantID
	ev.Role = string(actor.Role)
	ev.Kind = string(storage.KindExternalSystemAuths)
	ev.ResourceID = id
	if err := s.audit.Log(ctx, ev); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}

	return &Credential{Integration: e, APIKey: key}, nil
}

// VerifyKey resolves an API key presented on behalf of tenantID. Only active
// integrations authenticate.
func (s *Service) VerifyKey(ctx context.Context, tenantID, key string) (*ExternalSystemAuth, error) {
	if tenantID == "" || s.keys.ValidateKeyFormat(key) != nil {
		return nil, apperrors.Authentication(errInvalidKey)
	}

	all, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Persistence("integrations.verify_key", err)
	}

	prefix := s.keys.ExtractPrefix(key)
	for _, e := range all {
		if e.TenantID != tenantID || e.TokenPrefix != prefix {
			continue
		}
		if !s.keys.MatchKey(key, e.KeyHash) {
			continue
		}
		if e.Status != StatusActive {
			s.logger.WithFields(map[string]interface{}{
				"tenant_id":      tenantID,
				"integration_id": e.ID,
				"status":         string(e.Status),
			}).Debug("rejected key of inactive integration")
			return nil, apperrors.Authentication(errInvalidKey)
		}
		return e, nil
	}
	return nil, apperrors.Authentication(errInvalidKey)
}

// Actor returns the identity requests authenticated with an integration key act as
func Actor(e *ExternalSystemAuth) auth.Actor {
	return auth.Actor{
		ID:       "integration:" + e.ID,
		TenantID: e.TenantID,
		Role:     rbac.RoleViewer,
		IsActive: e.Status == StatusActive,
	}
}

// AuthenticateKey verifies an API key and returns the actor it acts as
func (s *Service) AuthenticateKey(ctx context.Context, tenantID, key string) (auth.Actor, error) {
	e, err := s.VerifyKey(ctx, tenantID, key)
	if err != nil {
		return auth.Actor{}, err
	}
	return Actor(e), nil
}
