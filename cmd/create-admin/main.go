package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/examportal/portal-backend/internal/database"
	"github.com/examportal/portal-backend/internal/logger"
	"github.com/examportal/portal-backend/internal/model"
	"github.com/examportal/portal-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg, "create-admin")

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Admin User ===")

	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	username := prompt(reader, "Enter Username: ")
	if username == "" {
		fmt.Println("Error: Username is required")
		return
	}

	firstName := prompt(reader, "Enter First Name: ")
	lastName := prompt(reader, "Enter Last Name: ")

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println()
	if len(password) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	admin := &model.User{
		Email:        email,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}

	err = userRepo.Create(ctx, admin)
	switch {
	case err == nil:
		fmt.Printf("\nSuccess! Admin '%s' (%s) created with ID: %d\n", admin.Username, admin.Email, admin.ID)
	case repository.IsDuplicateOn(err, "email"):
		// Existing account: promote it instead of failing.
		existing, getErr := userRepo.GetByIdentifier(ctx, email)
		if getErr != nil {
			log.Fatal().Err(getErr).Msg("Failed to load existing user")
		}
		if err := userRepo.SetRole(ctx, existing.ID, model.RoleAdmin); err != nil {
			log.Fatal().Err(err).Msg("Failed to promote user")
		}
		fmt.Printf("\nUser '%s' (ID %d) already existed and was promoted to admin\n", existing.Email, existing.ID)
	case errors.Is(err, repository.ErrDuplicate):
		fmt.Println("Error: Username is already taken")
	default:
		log.Fatal().Err(err).Msg("Failed to create admin")
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
