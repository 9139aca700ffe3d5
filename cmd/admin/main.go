package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"precifica/internal/config"
	"precifica/internal/db"
	"precifica/models"
)

const usage = `usage: admin <command> [args]

commands:
  create-admin <email> <password> [first-name] [last-name]
  promote <email>
  demote <email>
  list-users
`

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "admin: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	switch command {
	case "create-admin":
		return createAdmin(database, args)
	case "promote":
		return setRole(database, args, models.RoleAdmin)
	case "demote":
		return setRole(database, args, models.RoleUser)
	case "list-users":
		return listUsers(database)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func createAdmin(database *gorm.DB, args []string) error {
	if len(args) < 2 {
		return errors.New("create-admin requires an email and a password")
	}
	email := strings.ToLower(strings.TrimSpace(args[0]))
	password := args[1]
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	firstName, lastName := "", ""
	if len(args) > 2 {
		firstName = args[2]
	}
	if len(args) > 3 {
		lastName = args[3]
	}

	var existing models.User
	err := database.Where("lower(email) = ?", email).First(&existing).Error
	if err == nil {
		return fmt.Errorf("an account with email %q already exists", email)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleAdmin,
	}
	if err := database.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Created admin account %s (id %d)\n", user.Email, user.ID)
	return nil
}

func setRole(database *gorm.DB, args []string, role string) error {
	if len(args) < 1 {
		return errors.New("an email is required")
	}
	email := strings.ToLower(strings.TrimSpace(args[0]))

	var user models.User
	if err := database.Where("lower(email) = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no account with email %q", email)
		}
		return fmt.Errorf("find user: %w", err)
	}

	if user.Role == role {
		fmt.Fprintf(os.Stdout, "%s already has role %s\n", user.Email, role)
		return nil
	}

	if err := database.Model(&user).Update("role", role).Error; err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	fmt.Fprintf(os.Stdout, "%s is now %s\n", user.Email, role)
	return nil
}

func listUsers(database *gorm.DB) error {
	var users []models.User
	if err := database.Order("id asc").Find(&users).Error; err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Fprintln(os.Stdout, "no registered users")
		return nil
	}

	for _, user := range users {
		name := strings.TrimSpace(user.FirstName + " " + user.LastName)
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(os.Stdout, "%4d  %-30s  %-6s  %s\n", user.ID, user.Email, user.Role, name)
	}
	return nil
}
