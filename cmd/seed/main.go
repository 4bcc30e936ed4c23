// Command seed populates the ember database with demo data.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"ember/internal/config"
	"ember/internal/database"
	"ember/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of generated users")
	swipes := flag.Int("swipes", 20, "Decisions per generated user")
	likeRatio := flag.Float64("like-ratio", 0.6, "Probability that a decision is a like")
	messages := flag.Int("messages", 4, "Messages per new match")
	shouldClean := flag.Bool("clean", false, "Delete all rows before seeding")
	fixture := flag.String("fixture", "demo", "Built-in fixture to apply first (empty to skip)")
	fixtureFile := flag.String("fixture-file", "", "YAML fixture file to apply instead of the built-in one")
	dryRun := flag.Bool("dry-run", false, "Generate users without writing anything")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("Ember database seeder")
	log.Printf("Target: %d users, %d swipes each, like ratio %.2f, clean=%v", *numUsers, *swipes, *likeRatio, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:         *numUsers,
		SwipesPerUser:    *swipes,
		LikeRatio:        *likeRatio,
		MessagesPerMatch: *messages,
		DryRun:           *dryRun,
		RandSeed:         *randSeed,
	})
	ctx := context.Background()

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if !*dryRun {
		var f *seed.Fixture
		switch {
		case *fixtureFile != "":
			file, err := os.Open(*fixtureFile)
			if err != nil {
				log.Fatalf("Open fixture: %v", err)
			}
			f, err = seed.LoadFixture(file)
			_ = file.Close()
			if err != nil {
				log.Fatalf("Load fixture: %v", err)
			}
		case *fixture != "":
			if f, err = seed.BuiltinFixture(*fixture); err != nil {
				log.Fatalf("Load fixture: %v", err)
			}
		}
		if f != nil {
			users, err := s.ApplyFixture(ctx, f)
			if err != nil {
				log.Fatalf("Fixture seeding failed: %v", err)
			}
			log.Printf("Fixture applied: %d users", len(users))
		}
	}

	summary, err := s.SeedPopulation(ctx)
	if err != nil {
		log.Fatalf("Population seeding failed: %v", err)
	}
	log.Printf("All done: %s", summary)
}
