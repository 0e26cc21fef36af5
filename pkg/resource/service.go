package resource

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/audit"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/contextkeys"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/query"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/storage"
	"github.com/platinummonkey/estatehub/pkg/tenant"
)

var tracer = otel.Tracer("estatehub/resource")

// Operation names used for metrics, audit and spans
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpCount  = "count"
)

// Deps are the collaborators shared by every resource service. All are optional.
type Deps struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Audit   audit.Logger
}

// Service enforces tenant isolation and the role hierarchy for one resource kind
// and answers reads through the query engine. It holds no per-request state.
type Service[T Entity] struct {
	repo    *storage.Repository[T]
	policy  Policy[T]
	logger  *observability.Logger
	metrics *observability.Metrics
	audit   audit.Logger
	now     func() time.Time
	newID   func() string
}

// NewService creates a resource service
func NewService[T Entity](repo *storage.Repository[T], policy Policy[T], deps Deps) *Service[T] {
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if deps.Audit == nil {
		deps.Audit = audit.NoOp()
	}
	if policy.Schema == nil {
		policy.Schema = query.NewSchema[T](string(policy.Kind))
	}

	return &Service[T]{
		repo:    repo,
		policy:  policy,
		logger:  deps.Logger.WithField("kind", string(policy.Kind)),
		metrics: deps.Metrics,
		audit:   deps.Audit,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Schema returns the query schema of the resource
func (s *Service[T]) Schema() *query.Schema[T] {
	return s.policy.Schema
}

// Policy returns the resource policy
func (s *Service[T]) Policy() Policy[T] {
	return s.policy
}

// Repository returns the underlying repository
func (s *Service[T]) Repository() *storage.Repository[T] {
	return s.repo
}

// List returns one page of the actor's tenant collection
func (s *Service[T]) List(ctx context.Context, actor auth.Actor, spec query.Spec) (result query.Result[T], err error) {
	ctx, span := s.start(ctx, OpList, actor)
	defer func() { s.finish(span, OpList, err) }()

	if err = checkActor(actor); err != nil {
		return result, err
	}
	if !allows(actor, s.policy.ReadRole) {
		return result, s.deny(ctx, actor, OpList, "", "insufficient role")
	}

	scoped, err := s.scoped(ctx, actor)
	if err != nil {
		return result, err
	}

	result, err = query.Run(s.policy.Schema, scoped, spec)
	if err != nil {
		return result, err
	}
	s.metrics.ObserveQuery(string(s.policy.Kind), result.Total)
	return result, nil
}

// Get returns a record of the actor's tenant. Records of other tenants are
// reported as not found.
func (s *Service[T]) Get(ctx context.Context, actor auth.Actor, id string) (record T, err error) {
	ctx, span := s.start(ctx, OpGet, actor)
	span.SetAttributes(attribute.String("resource.id", id))
	defer func() { s.finish(span, OpGet, err) }()

	if err = checkActor(actor); err != nil {
		return record, err
	}
	if !allows(actor, s.policy.ReadRole) {
		return record, s.deny(ctx, actor, OpGet, id, "insufficient role")
	}
	return s.load(ctx, actor, id)
}

// Create stores a new record in the actor's tenant. Any id or tenant id on the
// input is replaced.
func (s *Service[T]) Create(ctx context.Context, actor auth.Actor, record T) (out T, err error) {
	ctx, span := s.start(ctx, OpCreate, actor)
	defer func() { s.finish(span, OpCreate, err) }()

	if err = checkActor(actor); err != nil {
		return out, err
	}
	if !allows(actor, s.policy.CreateRole) {
		return out, s.deny(ctx, actor, OpCreate, "", "insufficient role")
	}

	now := s.now()
	record.SetIdentity(s.newID(), actor.TenantID)
	record.SetTimestamps(now, now)

	if s.policy.Validate != nil {
		if err = s.policy.Validate(record); err != nil {
			return out, err
		}
	}
	if s.policy.AuthorizeCreate != nil {
		if err = s.policy.AuthorizeCreate(ctx, actor, record); err != nil {
			return out, s.denyErr(ctx, actor, OpCreate, record.GetID(), err)
		}
	}
	if err = s.checkConflicts(ctx, actor, record); err != nil {
		return out, err
	}

	out, err = s.repo.Put(ctx, record)
	if err != nil {
		return out, s.persistence(ctx, "create", err)
	}

	s.record(ctx, actor, audit.EventTypeDataCreate, out.GetID(), nil)
	return out, nil
}

// Update applies patch to a record of the actor's tenant
func (s *Service[T]) Update(ctx context.Context, actor auth.Actor, id string, patch Patch[T]) (out T, err error) {
	ctx, span := s.start(ctx, OpUpdate, actor)
	span.SetAttributes(attribute.String("resource.id", id))
	defer func() { s.finish(span, OpUpdate, err) }()

	if err = checkActor(actor); err != nil {
		return out, err
	}

	current, err := s.load(ctx, actor, id)
	if err != nil {
		return out, err
	}

	self := s.policy.SelfUpdate != nil && s.policy.SelfUpdate(actor, current)
	if !self && !allows(actor, s.policy.UpdateRole) {
		return out, s.deny(ctx, actor, OpUpdate, id, "insufficient role")
	}

	if err = patch.Validate(); err != nil {
		return out, err
	}

	if patch.AffectsRole() {
		subject, err := s.policy.subject(ctx, current)
		if err != nil {
			return out, s.persistence(ctx, "resolve subject", err)
		}
		if !rbac.CanActOn(actor.Role, subject) {
			return out, s.deny(ctx, actor, OpUpdate, id, "cannot act on "+string(subject))
		}
	}

	if s.policy.AuthorizeUpdate != nil {
		if err = s.policy.AuthorizeUpdate(ctx, actor, current, patch); err != nil {
			return out, s.denyErr(ctx, actor, OpUpdate, id, err)
		}
	}

	patch.Apply(current)
	current.SetTimestamps(current.GetCreatedAt(), s.now())

	if err = s.checkConflicts(ctx, actor, current); err != nil {
		return out, err
	}

	out, err = s.repo.Put(ctx, current)
	if err != nil {
		return out, s.persistence(ctx, "update", err)
	}

	s.record(ctx, actor, audit.EventTypeDataUpdate, id, patch.Fields())
	return out, nil
}

// Delete removes a record of the actor's tenant. The actor must strictly
// outrank the record's subject role.
func (s *Service[T]) Delete(ctx context.Context, actor auth.Actor, id string) (err error) {
	ctx, span := s.start(ctx, OpDelete, actor)
	span.SetAttributes(attribute.String("resource.id", id))
	defer func() { s.finish(span, OpDelete, err) }()

	if err = checkActor(actor); err != nil {
		return err
	}

	current, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}

	if !allows(actor, s.policy.DeleteRole) {
		return s.deny(ctx, actor, OpDelete, id, "insufficient role")
	}

	subject, err := s.policy.subject(ctx, current)
	if err != nil {
		return s.persistence(ctx, "resolve subject", err)
	}
	if !rbac.CanActOn(actor.Role, subject) {
		return s.deny(ctx, actor, OpDelete, id, "cannot act on "+string(subject))
	}

	if err = s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NotFound(s.policy.name())
		}
		return s.persistence(ctx, "delete", err)
	}

	s.record(ctx, actor, audit.EventTypeDataDelete, id, nil)
	return nil
}

// CountBy groups the actor's tenant collection by a schema field.
// Records without a value for field are not counted.
func (s *Service[T]) CountBy(ctx context.Context, actor auth.Actor, field string) (counts map[string]int, err error) {
	ctx, span := s.start(ctx, OpCount, actor)
	span.SetAttributes(attribute.String("query.field", field))
	defer func() { s.finish(span, OpCount, err) }()

	if err = checkActor(actor); err != nil {
		return nil, err
	}
	if !allows(actor, s.policy.ReadRole) {
		return nil, s.deny(ctx, actor, OpCount, "", "insufficient role")
	}
	if !s.policy.Schema.Has(field) {
		return nil, apperrors.Validation("unknown field %q", field)
	}

	scoped, err := s.scoped(ctx, actor)
	if err != nil {
		return nil, err
	}

	counts = make(map[string]int)
	for _, r := range scoped {
		if v, ok := s.policy.Schema.Value(r, field); ok {
			counts[v]++
		}
	}
	return counts, nil
}

// scoped fetches the tenant collection and applies the tenant guard
func (s *Service[T]) scoped(ctx context.Context, actor auth.Actor) ([]T, error) {
	records, err := s.repo.List(ctx, actor.TenantID)
	if err != nil {
		return nil, s.persistence(ctx, "list", err)
	}
	return tenant.ScopeCollection(actor, records), nil
}

// load fetches a record by id and applies the tenant guard
func (s *Service[T]) load(ctx context.Context, actor auth.Actor, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, apperrors.NotFound(s.policy.name())
	}

	record, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return zero, s.persistence(ctx, "get", err)
	}
	return tenant.AssertSameTenant(actor, record, found, s.policy.name())
}

func (s *Service[T]) checkConflicts(ctx context.Context, actor auth.Actor, candidate T) error {
	if s.policy.Conflicts == nil {
		return nil
	}

	existing, err := s.scoped(ctx, actor)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.GetID() != candidate.GetID() && s.policy.Conflicts(e, candidate) {
			msg := s.policy.ConflictMessage
			if msg == "" {
				msg = s.policy.name() + " already exists"
			}
			return apperrors.Conflict("%s", msg)
		}
	}
	return nil
}

func (s *Service[T]) persistence(ctx context.Context, op string, err error) error {
	s.logger.
		WithField("request_id", contextkeys.GetRequestID(ctx)).
		WithError(err).
		Errorf("%s %s failed", s.policy.name(), op)
	return apperrors.Persistence(string(s.policy.Kind)+"."+op, err)
}

// deny records an authorization denial and returns a Forbidden error
func (s *Service[T]) deny(ctx context.Context, actor auth.Actor, op, id, reason string) error {
	s.metrics.RecordDenial(string(s.policy.Kind), op)

	ev := audit.NewEvent(ctx, audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied)
	s.fillActor(ev, actor)
	ev.ResourceID = id
	ev.Reason = reason
	ev.Metadata = map[string]interface{}{"operation": op}
	s.log(ctx, ev)

	return apperrors.Forbidden("insufficient permissions")
}

// denyErr records hook failures that are authorization denials and passes
// every other error through unchanged
func (s *Service[T]) denyErr(ctx context.Context, actor auth.Actor, op, id string, err error) error {
	if !apperrors.IsForbidden(err) {
		return err
	}
	s.metrics.RecordDenial(string(s.policy.Kind), op)

	ev := audit.NewEvent(ctx, audit.EventTypeAuthzAccessDenied, audit.EventStatusDenied)
	s.fillActor(ev, actor)
	ev.ResourceID = id
	ev.Reason = err.Error()
	ev.Metadata = map[string]interface{}{"operation": op}
	s.log(ctx, ev)
	return err
}

func (s *Service[T]) record(ctx context.Context, actor auth.Actor, action audit.EventType, id string, fields []string) {
	ev := audit.NewEvent(ctx, action, audit.EventStatusSuccess)
	s.fillActor(ev, actor)
	ev.ResourceID = id
	if len(fields) > 0 {
		ev.Changes = append([]string(nil), fields...)
		sort.Strings(ev.Changes)
	}
	s.log(ctx, ev)
}

func (s *Service[T]) fillActor(ev *audit.Event, actor auth.Actor) {
	ev.ActorID = actor.ID
	ev.TenantID = actor.TenantID
	ev.Role = string(actor.Role)
	ev.Kind = string(s.policy.Kind)
}

func (s *Service[T]) log(ctx context.Context, ev *audit.Event) {
	if err := s.audit.Log(ctx, ev); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}
}

func (s *Service[T]) start(ctx context.Context, op string, actor auth.Actor) (context.Context, trace.Span) {
	return tracer.Start(ctx, string(s.policy.Kind)+"."+op,
		trace.WithAttributes(
			attribute.String("resource.kind", string(s.policy.Kind)),
			attribute.String("tenant.id", actor.TenantID),
			attribute.String("actor.role", string(actor.Role)),
		),
	)
}

func (s *Service[T]) finish(span trace.Span, op string, err error) {
	defer span.End()
	s.metrics.RecordResourceOperation(string(s.policy.Kind), op, outcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.ErrorCode(err))
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch apperrors.ErrorCode(err) {
	case apperrors.CodeForbidden:
		return "forbidden"
	case apperrors.CodeNotFound:
		return "not_found"
	case apperrors.CodeValidation:
		return "invalid"
	case apperrors.CodeConflict:
		return "conflict"
	case apperrors.CodeAuthentication:
		return "unauthenticated"
	default:
		return "error"
	}
}

func checkActor(actor auth.Actor) error {
	if actor.ID == "" || actor.TenantID == "" || !actor.IsActive {
		return apperrors.Authentication("authentication required")
	}
	return nil
}
