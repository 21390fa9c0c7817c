// Package main provides a dedicated CLI tool for database migrations
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"chainreact/internal/config"
	"chainreact/internal/storage/postgres"
)

const usage = `
chainreact Database Migration Tool

USAGE:
    migrate <command> [options]

COMMANDS:
    up           Run all pending migrations
    status       Show migration status
    reset        Reset database (DEVELOPMENT ONLY)
    health       Check database health

OPTIONS:
    --json          Output in JSON format
    --help, -h      Show this help message

EXAMPLES:
    migrate up
    migrate status --json
    migrate health

Migrations are forward-only; recovering from a bad migration means
restoring the database, not rolling back.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		os.Exit(0)
	}

	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	jsonOutput := flags.Bool("json", false, "Output in JSON format")
	flags.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	manager := postgres.NewMigrationManager(db)

	switch command {
	case "up":
		err = runMigrations(ctx, manager, *jsonOutput)
	case "status":
		err = showStatus(ctx, manager, *jsonOutput)
	case "reset":
		err = resetDatabase(ctx, manager, *jsonOutput, cfg.Environment)
	case "health":
		err = checkHealth(ctx, db, *jsonOutput)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

func runMigrations(ctx context.Context, manager *postgres.MigrationManager, jsonOutput bool) error {
	if !jsonOutput {
		fmt.Println("🚀 Running database migrations...")
	}

	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if jsonOutput {
		result := map[string]string{"status": "success", "message": "Migrations completed successfully"}
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	fmt.Println("✅ All migrations completed successfully!")
	return nil
}

func showStatus(ctx context.Context, manager *postgres.MigrationManager, jsonOutput bool) error {
	migrations, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(migrations)
	}

	fmt.Printf("📊 Migration Status\n")
	fmt.Printf("===================\n")
	fmt.Printf("Applied migrations: %d\n\n", len(migrations))

	if len(migrations) == 0 {
		fmt.Println("No migrations applied yet.")
		return nil
	}

	for _, migration := range migrations {
		fmt.Printf("✅ %s\n", migration.Version)
		fmt.Printf("   Name: %s\n", migration.Name)
		fmt.Printf("   Batch: %d\n", migration.Batch)
		fmt.Printf("   Applied: %s\n", migration.AppliedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("   Execution: %dms\n", migration.ExecutionTimeMS)
		fmt.Println()
	}

	return nil
}

func resetDatabase(ctx context.Context, manager *postgres.MigrationManager, jsonOutput bool, environment string) error {
	if environment == "production" {
		return fmt.Errorf("database reset is not allowed in production environment")
	}

	fmt.Println("⚠️  WARNING: This will delete ALL data in the database!")
	fmt.Print("Type 'yes' to confirm: ")

	var confirmation string
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		fmt.Println("❌ Database reset cancelled")
		return nil
	}

	fmt.Println("🗑️  Resetting database...")

	if err := manager.Reset(ctx); err != nil {
		return fmt.Errorf("database reset failed: %w", err)
	}

	if jsonOutput {
		result := map[string]string{"status": "success", "message": "Database reset completed successfully"}
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	fmt.Println("✅ Database reset completed successfully!")
	return nil
}

func checkHealth(ctx context.Context, db *postgres.DB, jsonOutput bool) error {
	if !jsonOutput {
		fmt.Println("🏥 Checking database health...")
	}

	if err := db.Health(ctx); err != nil {
		if jsonOutput {
			result := map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		return fmt.Errorf("database health check failed: %w", err)
	}

	if jsonOutput {
		result := map[string]string{"status": "healthy", "message": "Database connection and schema are healthy"}
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	fmt.Println("✅ Database is healthy!")
	return nil
}
