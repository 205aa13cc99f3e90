package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gad-esmeraldas/pkg/app"
	pkgMigrations "gad-esmeraldas/pkg/migrations"

	localMigrations "gad-esmeraldas/migrations"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		steps   = flag.Int("steps", 1, "Number of migrations to roll back (down)")
		name    = flag.String("name", "", "Migration name (create)")
		dryRun  = flag.Bool("dry-run", false, "Show pending migrations without executing them")
	)
	flag.Parse()

	if *command == "create" {
		if *name == "" {
			log.Fatal("Migration name is required for create command")
		}
		if err := createMigration(*name); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	appCtx, err := app.InitializeApp(ctx, "migrate")
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer appCtx.Shutdown(ctx)

	runner := pkgMigrations.NewRunner(appCtx.MongoDB.Database)
	localMigrations.RegisterAll(runner)

	switch *command {
	case "up":
		if *dryRun {
			printStatus(ctx, runner)
			return
		}
		if err := runner.Run(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

	case "down":
		if *dryRun {
			printStatus(ctx, runner)
			return
		}
		if err := runner.Rollback(ctx, *steps); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}

	case "status":
		printStatus(ctx, runner)

	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}

func printStatus(ctx context.Context, runner *pkgMigrations.Runner) {
	entries, err := runner.Status(ctx)
	if err != nil {
		log.Fatalf("Failed to get migration status: %v", err)
	}

	applied := 0
	for _, e := range entries {
		state := "pending"
		at := ""
		if e.Applied {
			state = "applied"
			at = " (" + e.AppliedAt.Format(time.DateTime) + ")"
			applied++
		}
		fmt.Printf("%-8s %s - %s%s\n", state, e.Version, e.Description, at)
	}
	fmt.Printf("\nTotal: %d migrations (%d applied, %d pending)\n", len(entries), applied, len(entries)-applied)
}

const migrationTemplate = `package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

func init() {
	Register(Migration{
		Version:     "%[1]s_%[2]s",
		Description: "%[2]s",
		Up:          up%[1]s,
		Down:        down%[1]s,
	})
}

func up%[1]s(ctx context.Context, db *mongo.Database) error {
	return nil
}

func down%[1]s(ctx context.Context, db *mongo.Database) error {
	return nil
}
`

// createMigration writes a new numbered migration skeleton into migrations/
func createMigration(name string) error {
	version := fmt.Sprintf("%03d", nextVersionNumber())
	filename := fmt.Sprintf("migrations/%s_%s.go", version, name)

	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("migration file %s already exists", filename)
	}
	if err := os.WriteFile(filename, []byte(fmt.Sprintf(migrationTemplate, version, name)), 0o644); err != nil {
		return err
	}

	fmt.Printf("Created migration file: %s\n", filename)
	return nil
}

func nextVersionNumber() int {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		return 1
	}

	maxVersion := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%03d_", &version); err == nil && version > maxVersion {
			maxVersion = version
		}
	}
	return maxVersion + 1
}
