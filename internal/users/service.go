package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/ids"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/validation"
)

// Service implements registration, sign-in and user administration.
type Service struct {
	store  Store
	tokens *auth.TokenService
	audit  audit.Recorder
	now    func() time.Time
}

// NewService wires the user service.
func NewService(store Store, tokens *auth.TokenService, rec audit.Recorder) *Service {
	return &Service{store: store, tokens: tokens, audit: rec, now: time.Now}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates a student (default) or instructor account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Role == "" {
		in.Role = auth.RoleStudent
	}
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}
	return s.create(ctx, User{
		Email:       in.Email,
		FullName:    in.FullName,
		Institution: strings.TrimSpace(in.Institution),
		Role:        in.Role,
		IsActive:    true,
	}, in.Password)
}

// Create is the admin form of Register and may create admins.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (User, error) {
	if err := auth.Authorize(actor, auth.ActionUserManage, auth.Target{}); err != nil {
		return User{}, err
	}
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return s.create(ctx, User{
		Email:       in.Email,
		FullName:    in.FullName,
		Institution: strings.TrimSpace(in.Institution),
		Role:        in.Role,
		IsActive:    active,
	}, in.Password)
}

// CreateSuperuser provisions an admin without an acting user, as the admin CLI does.
func (s *Service) CreateSuperuser(ctx context.Context, email, fullName, password string) (User, error) {
	in := CreateInput{Email: normalizeEmail(email), FullName: strings.TrimSpace(fullName), Password: password, Role: auth.RoleAdmin}
	if err := validation.Struct(in); err != nil {
		return User{}, err
	}
	return s.create(ctx, User{Email: in.Email, FullName: in.FullName, Role: auth.RoleAdmin, IsActive: true}, password)
}

func (s *Service) create(ctx context.Context, u User, password string) (User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return User{}, err
		}
		return User{}, apperr.Infra(err, "hash password")
	}
	now := s.now().UTC()
	u.ID = ids.New()
	u.PasswordHash = hash
	u.CreatedAt = now
	u.UpdatedAt = now
	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return User{}, storeErr(err, "create user")
	}
	s.audit.Record(ctx, audit.ActionCreate, audit.TableUsers, created.ID, nil, created)
	return created, nil
}

// Login verifies credentials and issues a bearer token. Failures never reveal
// whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, apperr.Infra(err, "load user")
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, apperr.Infra(err, "verify password")
	}
	if !u.IsActive {
		return Session{}, ErrInactive
	}
	token, expiresAt, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, apperr.Infra(err, "issue token")
	}
	now := s.now().UTC()
	if err := s.store.TouchUserLogin(ctx, u.ID, now); err != nil {
		return Session{}, apperr.Infra(err, "record login")
	}
	u.LastLoginAt = &now
	ctx = auth.ContextWithActor(ctx, u.Actor())
	s.audit.Record(ctx, audit.ActionLogin, audit.TableUsers, u.ID, nil, map[string]any{"email": u.Email})
	return Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Logout records the sign-out. Tokens are stateless and simply expire.
func (s *Service) Logout(ctx context.Context, actor auth.Actor) error {
	if actor.IsSystem() {
		return apperr.Unauthenticated("")
	}
	s.audit.Record(auth.ContextWithActor(ctx, actor), audit.ActionLogout, audit.TableUsers, actor.ID, nil, nil)
	return nil
}

// Authenticate resolves a bearer token to the current actor. The role comes
// from the stored row, so demotions and deactivation apply immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (auth.Actor, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Actor{}, apperr.Unauthenticated("invalid or expired token")
	}
	u, err := s.store.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Actor{}, apperr.Unauthenticated("invalid or expired token")
		}
		return auth.Actor{}, apperr.Infra(err, "load user")
	}
	if !u.IsActive {
		return auth.Actor{}, ErrInactive
	}
	return u.Actor(), nil
}

// Get returns a user to the user themself or to an admin.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (User, error) {
	if err := auth.Authorize(actor, auth.ActionReadOwn, auth.OwnedBy(id)); err != nil {
		return User{}, err
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, storeErr(err, "get user")
	}
	return u, nil
}

// Lookup loads a user without a policy check, for use by other services.
func (s *Service) Lookup(ctx context.Context, id string) (User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, storeErr(err, "get user")
	}
	return u, nil
}

// List returns the admin directory view.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter, p pagination.Page) (pagination.Result[User], error) {
	if err := auth.Authorize(actor, auth.ActionUserManage, auth.Target{}); err != nil {
		return pagination.Result[User]{}, err
	}
	if f.Role != "" && !f.Role.Valid() {
		return pagination.Result[User]{}, auth.ErrInvalidRole
	}
	f.Search = strings.TrimSpace(f.Search)
	p = p.Normalize()
	items, total, err := s.store.ListUsers(ctx, f, p)
	if err != nil {
		return pagination.Result[User]{}, apperr.Infra(err, "list users")
	}
	return pagination.NewResult(items, total, p), nil
}

// Update applies a patch. Users may change their own name, institution and
// password; everything else requires an admin.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, patch Patch) (User, error) {
	action := auth.ActionProfileManage
	if patch.adminOnly() {
		action = auth.ActionUserManage
	}
	if err := auth.Authorize(actor, action, auth.OwnedBy(id)); err != nil {
		return User{}, err
	}
	if err := validation.Struct(patch); err != nil {
		return User{}, err
	}
	before, err := s.store.GetUser(ctx, id)
	if err != nil {
		return User{}, storeErr(err, "get user")
	}
	after := before
	if patch.Email != nil {
		after.Email = normalizeEmail(*patch.Email)
	}
	if patch.FullName != nil {
		after.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Institution != nil {
		after.Institution = strings.TrimSpace(*patch.Institution)
	}
	if patch.Role != nil {
		after.Role = *patch.Role
	}
	if patch.IsActive != nil {
		if !*patch.IsActive && id == actor.ID {
			return User{}, apperr.Conflict("you cannot deactivate your own account")
		}
		after.IsActive = *patch.IsActive
	}
	if patch.Password != nil {
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			if errors.Is(err, auth.ErrWeakPassword) {
				return User{}, err
			}
			return User{}, apperr.Infra(err, "hash password")
		}
		after.PasswordHash = hash
	}
	after.UpdatedAt = s.now().UTC()
	updated, err := s.store.UpdateUser(ctx, after)
	if err != nil {
		return User{}, storeErr(err, "update user")
	}
	s.audit.Record(ctx, audit.ActionUpdate, audit.TableUsers, id, before, updated)
	return updated, nil
}

// Delete hard-deletes a user. The audit entry keeps the last snapshot.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.Authorize(actor, auth.ActionUserManage, auth.Target{}); err != nil {
		return err
	}
	if id == actor.ID {
		return ErrSelfDelete
	}
	before, err := s.store.GetUser(ctx, id)
	if err != nil {
		return storeErr(err, "get user")
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return storeErr(err, "delete user")
	}
	s.audit.Record(ctx, audit.ActionDelete, audit.TableUsers, id, before, nil)
	return nil
}

// storeErr passes domain errors through and wraps everything else.
func storeErr(err error, op string) error {
	if apperr.KindOf(err) != apperr.KindInfrastructure {
		return err
	}
	return apperr.Infra(err, "%s", op)
}
