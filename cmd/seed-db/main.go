package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/pasteleia/bakery/internal/domain/auth"
	"github.com/pasteleia/bakery/internal/domain/product"
	"github.com/pasteleia/bakery/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file, optionally gzip-compressed")
	flag.StringVar(&adminEmail, "admin-email", "", "back-office user to create (or BAKERY_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "password of the back-office user (or BAKERY_ADMIN_PASSWORD env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("BAKERY_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("BAKERY_ADMIN_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}

	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, productsFile, adminEmail, adminPassword string) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")

	if err := postgres.RunMigrations(pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if adminEmail == "" {
		lg.Info("No admin user requested, skipping")
		return nil
	}
	// Sessions are not touched when creating users.
	users := auth.NewService(postgres.NewUserRepository(pool), nil, nil, 0)
	u, err := users.EnsureUser(ctx, adminEmail, adminPassword)
	if err != nil {
		return errors.Wrap(err, "seed admin user")
	}
	lg.Info("Upserted admin user", zap.String("email", u.Email))

	return nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo product.Repository, productsFile string) error {
	lg.Info("Reading products file", zap.String("path", productsFile))

	seed, err := readProducts(productsFile)
	if err != nil {
		return err
	}
	existing, err := repo.List(ctx, product.Filter{})
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	missing := missingProducts(seed, existing)
	lg.Info("Creating products",
		zap.Int("seed", len(seed)),
		zap.Int("missing", len(missing)),
	)
	for i := range missing {
		p := &missing[i]
		if err := repo.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "create product %s", p.Name)
		}
		lg.Info("Created product", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return nil
}
