// Package seed loads demo accounts, profiles and products.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-storefront/cart"
	"github.com/jrsteele09/go-storefront/catalog"
	"github.com/jrsteele09/go-storefront/dataprovider"
	"github.com/jrsteele09/go-storefront/identity"
	"github.com/jrsteele09/go-storefront/identity/local"
	"github.com/jrsteele09/go-storefront/internal/utils"
	"github.com/jrsteele09/go-storefront/profiles"
	"github.com/jrsteele09/go-storefront/users"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProfileHook gives every new user a customer profile.
func ProfileHook(w dataprovider.Writer) local.SignUpHook {
	return func(ctx context.Context, u *users.User) error {
		row := profiles.Row(u.ID, u.FullName, profiles.RoleCustomer)
		if err := w.Upsert(ctx, profiles.Table, profiles.ColumnID, row); err != nil {
			return fmt.Errorf("[seed ProfileHook] create profile: %w", err)
		}
		return nil
	}
}

type Account struct {
	FullName string
	Email    string
	Password string
	Role     profiles.Role
}

// Accounts signs up every account that does not exist yet, confirms its e-mail
// and sets its role. It returns the accounts it created.
func Accounts(ctx context.Context, dir *local.Directory, w dataprovider.Writer, accounts ...Account) ([]Account, error) {
	client := dir.NewClient()
	defer client.Close()

	var created []Account
	for _, a := range accounts {
		ident, err := client.SignUp(ctx, a.Email, a.Password, map[string]any{"full_name": a.FullName})
		if errors.Is(err, identity.ErrUserAlreadyExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("[seed Accounts] sign up %s: %w", a.Email, err)
		}
		if err := dir.ConfirmEmail(a.Email); err != nil {
			return created, fmt.Errorf("[seed Accounts] confirm %s: %w", a.Email, err)
		}
		if err := w.Upsert(ctx, profiles.Table, profiles.ColumnID, profiles.Row(ident.ID, a.FullName, a.Role)); err != nil {
			return created, fmt.Errorf("[seed Accounts] set role for %s: %w", a.Email, err)
		}
		log.Info().Str("email", a.Email).Str("role", string(a.Role)).Msg("seeded account")
		created = append(created, a)
	}
	return created, nil
}

// GeneratePassword returns a random password that passes the strength rules.
func GeneratePassword() string {
	return "Sf1" + strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
}

// Products upserts each product into the catalog table.
func Products(ctx context.Context, w dataprovider.Writer, products ...cart.Product) error {
	for _, p := range products {
		if err := w.Upsert(ctx, catalog.Table, catalog.ColumnID, catalog.Row(p)); err != nil {
			return fmt.Errorf("[seed Products] %s: %w", p.ID, err)
		}
	}
	return nil
}

// DemoProducts is a small fixed catalogue.
func DemoProducts() []cart.Product {
	return []cart.Product{
		{ID: "mug-classic", Name: "Classic Mug", Description: "Stoneware mug, 350ml.", Price: decimal.RequireFromString("12.50")},
		{ID: "tee-logo", Name: "Logo T-Shirt", Description: "Organic cotton, unisex fit.", Price: decimal.RequireFromString("24.00"), ImageURL: utils.Ptr("https://picsum.photos/seed/tee-logo/320")},
		{ID: "tote-canvas", Name: "Canvas Tote", Description: "Heavy canvas with long handles.", Price: decimal.RequireFromString("18.00")},
		{ID: "notebook-a5", Name: "A5 Notebook", Description: "Dotted pages, lay-flat binding.", Price: decimal.RequireFromString("9.95")},
		{ID: "sticker-pack", Name: "Sticker Pack", Description: "Six vinyl stickers.", Price: decimal.RequireFromString("4.00")},
	}
}
