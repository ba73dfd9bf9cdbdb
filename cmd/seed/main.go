// Command seed loads the demo sellers and their opening listings into the
// relational backend. Running it twice is harmless.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/config"
	"carbonmarket/internal/domain"
	"carbonmarket/internal/infrastructure/database"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type seller struct {
	email, company, owner, address string
	listings                       []domain.Listing
}

var sellers = []seller{
	{
		email: "sales@greenforest.example", company: "GreenForest Ltd", owner: "Maria Silva",
		address: "Av. Paulista 1000, Sao Paulo",
		listings: []domain.Listing{
			{Amount: 1500, PricePerUnit: 18, ProjectType: domain.ProjectReforestation, Location: "Amazon Basin, Brazil",
				Description: "Sustainable reforestation of 500 hectares of degraded land."},
			{Amount: 800, PricePerUnit: 22, ProjectType: domain.ProjectRenewableEnergy, Location: "Atacama Desert, Chile",
				Description: "Solar farm project providing clean energy to local grid."},
		},
	},
	{
		email: "desk@ecocapture.example", company: "EcoCapture", owner: "Budi Santoso",
		address: "Jl. Sudirman 5, Jakarta",
		listings: []domain.Listing{
			{Amount: 3000, PricePerUnit: 15, ProjectType: domain.ProjectMethaneCapture, Location: "Dumpsite, Jakarta",
				Description: "Capture and conversion of landfill methane into electricity."},
		},
	},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	viper.SetDefault("SEED_PASSWORD", "greenpass1")
	password := viper.GetString("SEED_PASSWORD")

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database open")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	store := &database.Store{DB: db}
	ctx := context.Background()

	for _, s := range sellers {
		profile, err := store.SignUpWithProfile(ctx, s.email, password, domain.SessionUser{
			Role:        domain.RoleSeller,
			CompanyName: s.company,
			OwnerName:   s.owner,
			Address:     s.address,
			Verified:    true,
			CreatedAt:   time.Now(),
		})
		if errors.Is(err, coordinator.ErrEmailTaken) {
			log.Info().Str("email", s.email).Msg("seller already seeded, skipping")
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("email", s.email).Msg("sign up")
		}
		for _, l := range s.listings {
			l.SellerID = profile.ID
			l.SellerName = s.company
			l.Status = domain.ListingAvailable
			l.CreatedAt = time.Now()
			created, err := store.InsertListing(ctx, l)
			if err != nil {
				log.Fatal().Err(err).Str("seller", s.company).Msg("insert listing")
			}
			log.Info().Str("listing_id", created.ID).Str("seller", s.company).Int("amount", l.Amount).Msg("listing seeded")
		}
	}
	log.Info().Msg("seed complete")
}
