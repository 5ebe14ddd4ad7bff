package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"aquarelle/internal/infra/credentials"
)

// renderkey stores the image generation backend API key in the database so
// workers can pick it up without a restart.
func main() {
	_ = godotenv.Load()

	key := ""
	if len(os.Args) > 1 {
		key = strings.TrimSpace(os.Args[1])
	}
	if key == "" {
		key = strings.TrimSpace(os.Getenv("RENDER_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "render API key is required via argument or RENDER_API_KEY")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := credentials.NewStore(pool)
	if err := store.SetRenderAPIKey(ctx, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store render api key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("render api key stored")
}
