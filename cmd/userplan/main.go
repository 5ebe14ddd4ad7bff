package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"aquarelle/internal/domain"
)

// userplan assigns a subscription tier and credit balance to a user's
// billing profile. Payment webhooks own this in production; the CLI covers
// support and local development.
func main() {
	var (
		userFlag    string
		tierFlag    string
		creditsFlag int
	)

	flag.StringVar(&userFlag, "user", "", "user ID to update")
	flag.StringVar(&tierFlag, "tier", "free", "subscription tier to assign (free, professional, studio)")
	flag.IntVar(&creditsFlag, "credits", -1, "credit balance to set (negative keeps the current value)")
	flag.Parse()

	_ = godotenv.Load()

	userID := strings.TrimSpace(userFlag)
	if userID == "" {
		exitWithError(errors.New("-user is required"))
	}
	tier := strings.TrimSpace(strings.ToLower(tierFlag))
	if _, err := domain.ResolveTier(tier); err != nil {
		exitWithError(err)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	query := `
INSERT INTO billing_profiles (user_id, subscription_tier, credits_remaining)
VALUES ($1, $2, GREATEST($3, 0))
ON CONFLICT (user_id) DO UPDATE
SET subscription_tier = EXCLUDED.subscription_tier,
    credits_remaining = CASE WHEN $3 < 0 THEN billing_profiles.credits_remaining ELSE $3 END,
    updated_at = NOW();
`
	if _, err := pool.Exec(ctx, query, userID, tier, creditsFlag); err != nil {
		exitWithError(fmt.Errorf("failed to update billing profile: %w", err))
	}

	if creditsFlag < 0 {
		fmt.Printf("user %s set to tier %s\n", userID, tier)
	} else {
		fmt.Printf("user %s set to tier %s with %d credits\n", userID, tier, creditsFlag)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
