package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/config"
	"github.com/mohamdbadhe/campus-hub/internal/crypto"
	"github.com/mohamdbadhe/campus-hub/internal/db"
	"github.com/mohamdbadhe/campus-hub/internal/model"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

// seed bootstraps a fresh deployment: migrations, the admin account,
// the default library, and optionally a set of test accounts.
func main() {
	adminEmail := flag.String("email", "admin@campus.edu", "bootstrap admin email")
	adminPassword := flag.String("password", "admin123", "bootstrap admin password")
	testUsers := flag.Bool("test-users", false, "create student/lecturer/manager test accounts")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()
	store := repository.NewStore(pool)

	if err := ensureUser(ctx, store, *adminEmail, *adminPassword, model.RoleAdmin); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}
	if err := ensureLibrary(ctx, store, "Main Library", 100); err != nil {
		log.Fatalf("library seed failed: %v", err)
	}

	if *testUsers {
		accounts := []struct {
			email string
			role  model.Role
		}{
			{email: "student@campus.edu", role: model.RoleStudent},
			{email: "lecturer@campus.edu", role: model.RoleLecturer},
			{email: "manager@campus.edu", role: model.RoleManager},
		}
		for _, account := range accounts {
			if err := ensureUser(ctx, store, account.email, "password123", account.role); err != nil {
				log.Fatalf("test user seed failed for %s: %v", account.email, err)
			}
		}
	}

	log.Printf("seed complete")
}

func ensureUser(ctx context.Context, store *repository.Store, email, password string, role model.Role) error {
	now := time.Now().UTC()

	existing, err := store.GetUserByEmail(ctx, email)
	if err == nil {
		profile, err := store.GetProfile(ctx, existing.ID)
		if err != nil {
			return err
		}
		if profile.Role != role {
			return store.UpdateProfileRole(ctx, existing.ID, role, nil, now)
		}
		log.Printf("user %s already present", email)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return err
	}
	if role != model.RoleStudent {
		if err := store.UpdateProfileRole(ctx, user.ID, role, nil, now); err != nil {
			return err
		}
	}
	log.Printf("created %s (%s)", email, role)
	return nil
}

func ensureLibrary(ctx context.Context, store *repository.Store, name string, capacity int) error {
	_, err := store.GetLibraryByName(ctx, name)
	if err == nil {
		log.Printf("library %q already present", name)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	library := model.Library{
		ID:          uuid.NewString(),
		Name:        name,
		MaxCapacity: capacity,
		IsOpen:      true,
		LastUpdated: time.Now().UTC(),
	}
	if err := store.CreateLibrary(ctx, library); err != nil {
		return err
	}
	log.Printf("created library %q", name)
	return nil
}
