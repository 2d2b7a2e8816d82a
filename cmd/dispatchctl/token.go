package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shenikar/emergency_dispatch_system/internal/access"
	"github.com/shenikar/emergency_dispatch_system/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
		secret string
	)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Long: `Issue a signed bearer token for the given user and role.

The secret defaults to JWT_SECRET from the environment or .env file.
Without --user-id a new random user id is generated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				// .env необязателен
				_ = godotenv.Load()
				secret = os.Getenv("JWT_SECRET")
			}
			token, actor, err := issueToken(secret, userID, access.Role(role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "user %s, role %s, expires in %s\n", actor.ID, actor.Role, ttl)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&userID, "user-id", "", "User ID (UUID)")
	tokenCmd.Flags().StringVar(&role, "role", string(access.RoleUser), "Role: user, rescuer, dispatcher or admin")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.Flags().StringVar(&secret, "secret", "", "Signing secret")

	return tokenCmd
}

func issueToken(secret, userID string, role access.Role, ttl time.Duration) (string, access.Actor, error) {
	if secret == "" {
		return "", access.Actor{}, errors.New("signing secret is empty: set JWT_SECRET or pass --secret")
	}
	if !role.Valid() {
		return "", access.Actor{}, fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		return "", access.Actor{}, fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	id := uuid.New()
	if userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return "", access.Actor{}, fmt.Errorf("invalid user id: %w", err)
		}
		id = parsed
	}

	actor := access.Actor{ID: id, Role: role}
	token, err := auth.GenerateToken(secret, actor, ttl)
	if err != nil {
		return "", access.Actor{}, err
	}
	return token, actor, nil
}
