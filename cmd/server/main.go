package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-storefront/app"
	"github.com/jrsteele09/go-storefront/catalog"
	"github.com/jrsteele09/go-storefront/dataprovider"
	"github.com/jrsteele09/go-storefront/dataprovider/memstore"
	"github.com/jrsteele09/go-storefront/dataprovider/postgres"
	"github.com/jrsteele09/go-storefront/identity/local"
	"github.com/jrsteele09/go-storefront/identity/oidc"
	"github.com/jrsteele09/go-storefront/internal/config"
	"github.com/jrsteele09/go-storefront/internal/seed"
	"github.com/jrsteele09/go-storefront/profiles"
	"github.com/jrsteele09/go-storefront/server"
	"github.com/jrsteele09/go-storefront/server/visitors"
	"github.com/jrsteele09/go-storefront/token"
	fakeuserrepo "github.com/jrsteele09/go-storefront/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	googleConnector = "google"
	sweepInterval   = time.Minute
	flowMaxAge      = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, writer, closeData, err := openData(ctx, c)
	if err != nil {
		return err
	}
	defer closeData()

	directory, providers, err := newDirectory(ctx, c, writer)
	if err != nil {
		return err
	}
	if err := seedData(ctx, c, directory, writer); err != nil {
		return err
	}

	factory, err := app.NewFactory(directory, data,
		app.WithProfileTimeout(c.GetProfileTimeout()),
		app.WithEmailConfirmation(c.GetRequireEmailConfirmation()),
	)
	if err != nil {
		return err
	}
	registry := visitors.NewRegistry(factory, c.GetVisitorTTL())
	defer registry.Close()

	products, err := catalog.New(data, c.GetProductCacheSize(),
		catalog.WithCacheTTL(c.GetProductCacheTTL()),
		catalog.WithLookupTimeout(c.GetProductLookupTimeout()),
	)
	if err != nil {
		return err
	}

	handler, err := server.New(c, registry, products, server.WithOAuthProviders(providers...))
	if err != nil {
		return err
	}
	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listenAndServe(httpServer)
	})
	g.Go(func() error {
		return registry.Run(gctx, sweepInterval)
	})
	g.Go(func() error {
		return purgeFlows(gctx, directory)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer)
	})
	return g.Wait()
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if c.IsDev() {
		level = min(level, zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(level)
}

// openData connects to PostgreSQL when DATABASE_URL is set, otherwise it
// serves from an in-memory store.
func openData(ctx context.Context, c config.Config) (dataprovider.Provider, dataprovider.Writer, func(), error) {
	if c.GetDatabaseURL() == "" {
		log.Warn().Msg("DATABASE_URL not set, using the in-memory data provider")
		store := memstore.New()
		return store, store.Writer(), func() {}, nil
	}

	provider, pool, err := postgres.Open(ctx, c.GetDatabaseURL())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("[run openData] %w", err)
	}
	return provider, postgres.NewWriter(pool), pool.Close, nil
}

func newDirectory(ctx context.Context, c config.Config, writer dataprovider.Writer) (*local.Directory, []string, error) {
	issuer, err := token.NewIssuer(c.GetTokenSecret(), c.GetAccessTokenTTL(), token.WithIssuerName(c.GetBaseURL()))
	if err != nil {
		return nil, nil, fmt.Errorf("[run newDirectory] %w", err)
	}

	options := []local.DirectoryOption{
		local.WithEmailConfirmation(c.GetRequireEmailConfirmation()),
		local.WithRefreshInterval(c.GetTokenRefreshInterval()),
		local.WithSignUpHook(seed.ProfileHook(writer)),
	}

	var providers []string
	if c.GoogleEnabled() {
		connector, err := oidc.NewConnector(ctx, oidc.ConnectorConfig{
			Issuer:       c.GetGoogleIssuer(),
			ClientID:     c.GetGoogleClientID(),
			ClientSecret: c.GetGoogleClientSecret(),
			RedirectURL:  c.GetBaseURL() + server.RouteCallback,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("[run newDirectory] google connector: %w", err)
		}
		options = append(options, local.WithConnector(googleConnector, connector))
		providers = append(providers, googleConnector)
	}

	directory, err := local.NewDirectory(fakeuserrepo.NewFakeUserRepo(), issuer, options...)
	if err != nil {
		return nil, nil, fmt.Errorf("[run newDirectory] %w", err)
	}
	return directory, providers, nil
}

func seedData(ctx context.Context, c config.Config, directory *local.Directory, writer dataprovider.Writer) error {
	password := c.GetSeedAdminPassword()
	generated := password == ""
	if generated {
		password = seed.GeneratePassword()
	}

	created, err := seed.Accounts(ctx, directory, writer, seed.Account{
		FullName: "Store Admin",
		Email:    c.GetSeedAdminEmail(),
		Password: password,
		Role:     profiles.RoleAdmin,
	})
	if err != nil {
		return err
	}
	if len(created) > 0 && generated {
		log.Info().Str("email", c.GetSeedAdminEmail()).Str("password", password).Msg("Admin credentials")
	}

	if !c.GetSeedDemoData() {
		return nil
	}
	return seed.Products(ctx, writer, seed.DemoProducts()...)
}

func purgeFlows(ctx context.Context, directory *local.Directory) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := directory.PurgeExpiredFlows(flowMaxAge); n > 0 {
				log.Debug().Int("purged", n).Msg("expired oauth flows removed")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
