package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/pkg/auth"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
	"github.com/netraseva/intake-api/pkg/logger"
)

type fakeAccountRepo struct {
	byID    map[uuid.UUID]*model.Account
	byEmail map[string]uuid.UUID
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		byID:    make(map[uuid.UUID]*model.Account),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *model.Account) error {
	if _, exists := r.byEmail[account.Email]; exists {
		return apperrors.Duplicate("email already registered", nil)
	}
	r.byID[account.ID] = account
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *fakeAccountRepo) Get(_ context.Context, id uuid.UUID) (*model.Account, error) {
	account, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("account", nil)
	}
	return account, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	id, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("account", nil)
	}
	return r.byID[id], nil
}

func (r *fakeAccountRepo) ListPending(_ context.Context) ([]*model.Account, error) {
	var pending []*model.Account
	for _, account := range r.byID {
		if _, ok := account.PendingRole(); ok {
			pending = append(pending, account)
		}
	}
	return pending, nil
}

func (r *fakeAccountRepo) SetGrant(_ context.Context, accountID uuid.UUID, role model.Role, status model.GrantStatus) error {
	account, ok := r.byID[accountID]
	if !ok {
		return apperrors.NotFound("account", nil)
	}
	apply := func(current model.GrantStatus) model.GrantStatus {
		if status > current {
			return status
		}
		return current
	}
	switch role {
	case model.RoleVolunteer:
		account.Volunteer = apply(account.Volunteer)
	case model.RolePractitioner:
		account.Practitioner = apply(account.Practitioner)
	case model.RoleAdmin:
		account.Admin = apply(account.Admin)
	}
	return nil
}

type nullOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *nullOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *nullOutboxRepo) GetPendingWithLock(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *nullOutboxRepo) MarkProcessed(_ context.Context, _ uuid.UUID) error { return nil }

func (r *nullOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string, _ *time.Time) error {
	return nil
}

func (r *nullOutboxRepo) MoveToDeadLetter(_ context.Context, _ *model.OutboxEvent) error { return nil }

func (r *nullOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestService() (*Service, *fakeAccountRepo, *nullOutboxRepo) {
	accounts := newFakeAccountRepo()
	outbox := &nullOutboxRepo{}
	jwtSvc := auth.NewJWTService(auth.Config{Secret: "test-secret", ExpiryHours: 1})
	svc := NewService(accounts, outbox, jwtSvc, nil, logger.NewLogger(nil), nil)
	return svc, accounts, outbox
}

func register(t *testing.T, svc *Service, email string, role model.Role) *model.Account {
	t.Helper()
	account, err := svc.Register(context.Background(), &model.RegisterRequest{
		Name:     "Test Staff",
		Email:    email,
		Password: "correct-horse",
		Role:     role,
	})
	require.NoError(t, err)
	return account
}

func TestRegisterGrants(t *testing.T) {
	svc, _, _ := newTestService()

	account := register(t, svc, "v@camp.org", model.RoleVolunteer)
	assert.Equal(t, model.GrantPending, account.Volunteer)
	assert.Equal(t, model.GrantUnset, account.Practitioner)
	assert.Equal(t, model.GrantUnset, account.Admin)
	assert.NotEqual(t, "correct-horse", account.PasswordHash)
}

func TestRegisterInvalidRole(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Name:     "Test Staff",
		Email:    "x@camp.org",
		Password: "correct-horse",
		Role:     "superuser",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestLoginUnapprovedRole(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "v@camp.org", model.RoleVolunteer)

	_, err := svc.Login(context.Background(), "v@camp.org", "correct-horse", model.RoleVolunteer)
	assert.True(t, apperrors.IsForbidden(err), "pending grant must not log in")
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc, "v@camp.org", model.RoleVolunteer)

	_, err := svc.Login(context.Background(), "v@camp.org", "wrong-password", model.RoleVolunteer)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))

	// Unknown email yields the same error kind as a wrong password.
	_, err = svc.Login(context.Background(), "nobody@camp.org", "correct-horse", model.RoleVolunteer)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}

func TestApproveThenLogin(t *testing.T) {
	svc, accounts, outbox := newTestService()
	account := register(t, svc, "p@camp.org", model.RolePractitioner)

	require.NoError(t, svc.Approve(context.Background(), account.ID, model.RolePractitioner))
	assert.Equal(t, model.GrantApproved, accounts.byID[account.ID].Practitioner)

	resp, err := svc.Login(context.Background(), "p@camp.org", "correct-horse", model.RolePractitioner)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RolePractitioner, resp.Role)
	assert.Equal(t, account.ID, resp.AccountID)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	// Approval for one role does not grant another.
	_, err = svc.Login(context.Background(), "p@camp.org", "correct-horse", model.RoleAdmin)
	assert.True(t, apperrors.IsForbidden(err))

	require.Len(t, outbox.events, 1)
	assert.Equal(t, model.EventUserApproved, outbox.events[0].EventType)
}

func TestApproveIdempotent(t *testing.T) {
	svc, accounts, _ := newTestService()
	account := register(t, svc, "v@camp.org", model.RoleVolunteer)

	require.NoError(t, svc.Approve(context.Background(), account.ID, model.RoleVolunteer))
	require.NoError(t, svc.Approve(context.Background(), account.ID, model.RoleVolunteer))
	assert.Equal(t, model.GrantApproved, accounts.byID[account.ID].Volunteer)
}

func TestApproveUnknownAccount(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Approve(context.Background(), uuid.New(), model.RoleVolunteer)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListPendingApprovals(t *testing.T) {
	svc, _, _ := newTestService()
	account := register(t, svc, "v@camp.org", model.RoleVolunteer)
	approved := register(t, svc, "p@camp.org", model.RolePractitioner)
	require.NoError(t, svc.Approve(context.Background(), approved.ID, model.RolePractitioner))

	pending, err := svc.ListPendingApprovals(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, account.ID, pending[0].AccountID)
	assert.Equal(t, model.RoleVolunteer, pending[0].Role)
}

func TestValidateToken(t *testing.T) {
	svc, _, _ := newTestService()
	account := register(t, svc, "a@camp.org", model.RoleAdmin)
	require.NoError(t, svc.Approve(context.Background(), account.ID, model.RoleAdmin))

	resp, err := svc.Login(context.Background(), "a@camp.org", "correct-horse", model.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	_, err = svc.ValidateToken(context.Background(), "not-a-token")
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}
