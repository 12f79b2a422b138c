package config

type SeedConfig interface {
	GetSeedDemoData() bool
	GetSeedAdminEmail() string
	GetSeedAdminPassword() string
}

// Seed controls the demo data loaded into the in-memory provider.
type Seed struct {
	DemoData      bool   `env:"SEED_DEMO_DATA" envDefault:"true"`
	AdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@storefront.local"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
}

var _ SeedConfig = Seed{}

func (s Seed) GetSeedDemoData() bool {
	return s.DemoData
}

func (s Seed) GetSeedAdminEmail() string {
	return s.AdminEmail
}

// GetSeedAdminPassword returns "" when a password should be generated.
func (s Seed) GetSeedAdminPassword() string {
	return s.AdminPassword
}
