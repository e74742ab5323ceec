package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/samirrijal/routereplay/internal/adapters/postgres"
	"github.com/samirrijal/routereplay/internal/adapters/routefile"
	"github.com/samirrijal/routereplay/internal/pkg/config"
)

const usage = "usage: migrate up | migrate import <route-file> <route-id>"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load("routereplay-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		runMigrations(ctx, db)
	case "import":
		if len(os.Args) != 4 {
			log.Fatal(usage)
		}
		importRoute(ctx, db, os.Args[2], os.Args[3])
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
}

func runMigrations(ctx context.Context, db *postgres.DB) {
	files := []string{
		"migrations/001_route_samples.sql",
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}

// importRoute stores a JSON or GPX route file as routeID, replacing any
// samples already stored under that id.
func importRoute(ctx context.Context, db *postgres.DB, path, routeID string) {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		log.Fatal("route id must not be empty")
	}

	route, err := routefile.NewFileSource(path).Load(ctx)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	repo := postgres.NewRouteSampleRepo(db)
	if err := repo.ReplaceRoute(ctx, routeID, route); err != nil {
		log.Fatalf("import %s: %v", routeID, err)
	}

	n, err := repo.CountByRoute(ctx, routeID)
	if err != nil {
		log.Fatalf("count %s: %v", routeID, err)
	}
	fmt.Printf("OK  %s: %d samples\n", routeID, n)
}
