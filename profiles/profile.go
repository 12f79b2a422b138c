// Package profiles resolves the authorization profile of a signed-in subject
// from the remote data provider.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-storefront/dataprovider"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
)

const (
	Table = "profiles"

	ColumnID       = "id"
	ColumnFullName = "full_name"
	ColumnRole     = "role"
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrProfileAmbiguous = errors.New("profile ambiguous")
	ErrProfileMalformed = errors.New("profile malformed")
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ParseRole accepts exactly the known roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrProfileMalformed, s)
	}
}

// Profile is the authorization data held for a subject.
type Profile struct {
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// IsAdmin is false for a nil profile.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Resolver looks profiles up by subject ID. It keeps no cache.
type Resolver struct {
	provider dataprovider.Provider
}

func NewResolver(provider dataprovider.Provider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve performs exactly one lookup for subjectID.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) (*Profile, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, fmt.Errorf("[Resolver Resolve] %w: subject id is required", sferrors.ErrInvalidInput)
	}

	row, err := r.provider.QueryOne(ctx, Table, dataprovider.Where(ColumnID, subjectID))
	switch {
	case err == nil:
	case errors.Is(err, dataprovider.ErrNoRows):
		return nil, ErrProfileNotFound
	case errors.Is(err, dataprovider.ErrMultipleRows):
		return nil, ErrProfileAmbiguous
	default:
		return nil, fmt.Errorf("[Resolver Resolve] %w: %w", sferrors.ErrTransport, err)
	}

	return FromRow(row)
}

// FromRow maps a profiles row to a Profile.
func FromRow(row dataprovider.Row) (*Profile, error) {
	roleValue, ok := row[ColumnRole].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing role", ErrProfileMalformed)
	}
	role, err := ParseRole(roleValue)
	if err != nil {
		return nil, err
	}
	return &Profile{
		FullName: row.String(ColumnFullName),
		Role:     role,
	}, nil
}

// Row is the profiles row for a new subject.
func Row(subjectID, fullName string, role Role) dataprovider.Row {
	return dataprovider.Row{
		ColumnID:       subjectID,
		ColumnFullName: fullName,
		ColumnRole:     string(role),
	}
}
