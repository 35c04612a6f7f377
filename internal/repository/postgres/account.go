package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/netraseva/intake-api/internal/model"
	"github.com/netraseva/intake-api/internal/repository"
	apperrors "github.com/netraseva/intake-api/pkg/errors"
)

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func grantColumn(role model.Role) (string, error) {
	switch role {
	case model.RoleVolunteer:
		return "volunteer", nil
	case model.RolePractitioner:
		return "practitioner", nil
	case model.RoleAdmin:
		return "admin", nil
	}
	return "", fmt.Errorf("invalid role %q", role)
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (
			id, name, email, password_hash,
			volunteer, practitioner, admin,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			account.ID,
			account.Name,
			account.Email,
			account.PasswordHash,
			account.Volunteer,
			account.Practitioner,
			account.Admin,
			account.CreatedAt,
			account.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Duplicate("email already registered", err)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `SELECT * FROM accounts WHERE id = $1`
	var account model.Account
	err := r.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("account", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT * FROM accounts WHERE email = $1`
	var account model.Account
	err := r.db.GetContext(ctx, &account, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("account", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) ListPending(ctx context.Context) ([]*model.Account, error) {
	query := `
		SELECT * FROM accounts
		WHERE volunteer = 0.5 OR practitioner = 0.5 OR admin = 0.5
		ORDER BY created_at ASC
	`
	var accounts []*model.Account
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("failed to list pending accounts: %w", err)
	}
	return accounts, nil
}

// SetGrant writes the grant for one role. GREATEST keeps grants monotonic,
// so approving an already-approved role is a no-op rather than an error.
func (r *accountRepository) SetGrant(ctx context.Context, accountID uuid.UUID, role model.Role, status model.GrantStatus) error {
	column, err := grantColumn(role)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE accounts
		SET %s = GREATEST(%s, $1), updated_at = NOW()
		WHERE id = $2
	`, column, column)

	result, err := r.db.ExecContext(ctx, query, status, accountID)
	if err != nil {
		return fmt.Errorf("failed to set role grant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("account", nil)
	}
	return nil
}
