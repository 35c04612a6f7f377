package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Role is one of the three camp roles an account may hold.
type Role string

const (
	RoleVolunteer    Role = "volunteer"
	RolePractitioner Role = "practitioner"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleVolunteer || r == RolePractitioner || r == RoleAdmin
}

// GrantStatus is the per-role approval state. Like StationStatus it is
// stored and served as 0 / 0.5 / 1; login demands exactly Approved.
type GrantStatus int

const (
	GrantUnset GrantStatus = iota
	GrantPending
	GrantApproved
)

func (g GrantStatus) String() string {
	switch g {
	case GrantPending:
		return "pending"
	case GrantApproved:
		return "approved"
	default:
		return "unset"
	}
}

func (g GrantStatus) numeric() float64 {
	switch g {
	case GrantPending:
		return 0.5
	case GrantApproved:
		return 1
	default:
		return 0
	}
}

func grantStatusFromNumeric(v float64) (GrantStatus, error) {
	switch v {
	case 0:
		return GrantUnset, nil
	case 0.5:
		return GrantPending, nil
	case 1:
		return GrantApproved, nil
	}
	return GrantUnset, fmt.Errorf("invalid grant status value %v", v)
}

func (g GrantStatus) Value() (driver.Value, error) {
	return g.numeric(), nil
}

func (g *GrantStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case float64:
		parsed, err := grantStatusFromNumeric(v)
		if err != nil {
			return err
		}
		*g = parsed
		return nil
	case int64:
		parsed, err := grantStatusFromNumeric(float64(v))
		if err != nil {
			return err
		}
		*g = parsed
		return nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("invalid grant status %q: %w", v, err)
		}
		parsed, err := grantStatusFromNumeric(f)
		if err != nil {
			return err
		}
		*g = parsed
		return nil
	case nil:
		*g = GrantUnset
		return nil
	}
	return fmt.Errorf("cannot scan %T into GrantStatus", src)
}

func (g GrantStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.numeric())
}

func (g *GrantStatus) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := grantStatusFromNumeric(v)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Account is a staff login with three independent role grants.
type Account struct {
	Base
	Name         string      `db:"name" json:"name"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	Volunteer    GrantStatus `db:"volunteer" json:"volunteer"`
	Practitioner GrantStatus `db:"practitioner" json:"practitioner"`
	Admin        GrantStatus `db:"admin" json:"admin"`
}

// GrantFor returns the grant for the named role.
func (a *Account) GrantFor(role Role) GrantStatus {
	switch role {
	case RoleVolunteer:
		return a.Volunteer
	case RolePractitioner:
		return a.Practitioner
	case RoleAdmin:
		return a.Admin
	}
	return GrantUnset
}

// PendingRole returns the first role awaiting approval, if any.
func (a *Account) PendingRole() (Role, bool) {
	for _, role := range []Role{RoleVolunteer, RolePractitioner, RoleAdmin} {
		if a.GrantFor(role) == GrantPending {
			return role, true
		}
	}
	return "", false
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     Role   `json:"role" binding:"required,oneof=volunteer practitioner admin"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     Role   `json:"role" binding:"required,oneof=volunteer practitioner admin"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	AccountID uuid.UUID `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TokenClaims struct {
	AccountID uuid.UUID
	Email     string
	Role      Role
}

// PendingApproval is one row of the admin approval queue.
type PendingApproval struct {
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
}
