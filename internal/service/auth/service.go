package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/netraseva/intake-api/internal/email"
	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
	"github.com/netraseva/intake-api/pkg/auth"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
	"github.com/netraseva/intake-api/pkg/logger"
	"github.com/netraseva/intake-api/pkg/metrics"
	"github.com/netraseva/intake-api/pkg/security"
)

const bcryptCost = 12

// Service gates login behind admin-approved role grants. Grants move
// Unset -> Pending -> Approved and never backward; there is no revocation.
type Service struct {
	accounts repository.AccountRepository
	outbox   repository.OutboxRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	emailSvc email.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	accounts repository.AccountRepository,
	outbox repository.OutboxRepository,
	jwtSvc auth.JWTService,
	emailSvc email.Service,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		accounts: accounts,
		outbox:   outbox,
		jwtSvc:   jwtSvc,
		hasher:   security.NewBcryptHasher(bcryptCost),
		emailSvc: emailSvc,
		logger:   log,
		metrics:  m,
	}
}

// Register creates the account with the requested role pending and the
// other grants unset. The plaintext password never leaves this function.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.Account, error) {
	if !req.Role.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("invalid role %q", req.Role), nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("invalid password", err)
	}

	account := &model.Account{
		Base:         model.Base{ID: uuid.New()},
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	switch req.Role {
	case model.RoleVolunteer:
		account.Volunteer = model.GrantPending
	case model.RolePractitioner:
		account.Practitioner = model.GrantPending
	case model.RoleAdmin:
		account.Admin = model.GrantPending
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Registrations.Inc()
	}

	if s.emailSvc != nil {
		if err := s.emailSvc.SendRegistrationReceived(ctx, account.Email, account.Name); err != nil {
			s.logger.Error(err, "failed to send registration email", "account_id", account.ID.String())
		}
	}

	return account, nil
}

// Login verifies credentials and the grant for the requested role. Bad
// credentials and an unapproved role are distinct error kinds even though
// the client may collapse them into one message.
func (s *Service) Login(ctx context.Context, emailAddr, password string, role model.Role) (*model.TokenResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		s.countLogin("bad_credentials")
		// Same error as a wrong password so the response does not leak
		// which emails exist.
		return nil, apperrors.Unauthorized(err)
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		s.countLogin("bad_credentials")
		return nil, apperrors.Unauthorized(err)
	}

	if account.GrantFor(role) != model.GrantApproved {
		s.countLogin("unapproved_role")
		return nil, apperrors.Forbidden(
			fmt.Sprintf("%s role not yet approved, contact admin", role), nil)
	}

	token, expiresAt, err := s.jwtSvc.GenerateToken(account, role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.countLogin("success")
	return &model.TokenResponse{
		Token:     token,
		Role:      role,
		AccountID: account.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// ListPendingApprovals returns every account with at least one pending
// grant, annotated with the first pending role.
func (s *Service) ListPendingApprovals(ctx context.Context) ([]*model.PendingApproval, error) {
	accounts, err := s.accounts.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]*model.PendingApproval, 0, len(accounts))
	for _, account := range accounts {
		role, ok := account.PendingRole()
		if !ok {
			continue
		}
		pending = append(pending, &model.PendingApproval{
			AccountID: account.ID,
			Name:      account.Name,
			Email:     account.Email,
			Role:      role,
		})
	}
	return pending, nil
}

// Approve moves the named grant to Approved. Re-approving an approved role
// is a no-op.
func (s *Service) Approve(ctx context.Context, accountID uuid.UUID, role model.Role) error {
	if !role.Valid() {
		return apperrors.Validation(fmt.Sprintf("invalid role %q", role), nil)
	}

	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}

	if err := s.accounts.SetGrant(ctx, accountID, role, model.GrantApproved); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.Approvals.Inc()
	}

	if s.emailSvc != nil {
		if err := s.emailSvc.SendApprovalNotice(ctx, account.Email, account.Name, string(role)); err != nil {
			s.logger.Error(err, "failed to send approval email", "account_id", accountID.String())
		}
	}

	s.emitApproved(ctx, accountID, role)
	return nil
}

// ValidateToken is the hook the auth middleware uses.
func (s *Service) ValidateToken(_ context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}

func (s *Service) emitApproved(ctx context.Context, accountID uuid.UUID, role model.Role) {
	if s.outbox == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"account_id": accountID,
		"role":       role,
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal approval event")
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: model.EventUserApproved,
		Payload:   payload,
	}); err != nil {
		s.logger.Error(err, "failed to create outbox event", "event_type", model.EventUserApproved)
	}
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(outcome).Inc()
	}
}
