package main

import (
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"newapi-suite-bot/bot"
	"newapi-suite-bot/config"
	"newapi-suite-bot/economy"
	"newapi-suite-bot/newapi"
	"newapi-suite-bot/store"

	"github.com/glebarez/sqlite"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	st := store.New(db)
	if err := st.AutoMigrate(); err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := newapi.NewClient(cfg.API.BaseURL, cfg.API.AccessToken, cfg.API.AdminUserID)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	transfer := economy.NewTransferrer(client, cfg.Binding.QuotaDisplayRatio, logger)
	heist := economy.NewHeistEngine(cfg.Heist, st, transfer, rng, logger)
	checkIn := economy.NewCheckInEngine(cfg.CheckIn, cfg.Binding.QuotaDisplayRatio, st, client, rng, logger)
	admin := economy.NewAccountAdmin(cfg.Binding, st, client, logger)

	b, err := bot.New(cfg, st, client, admin, heist, checkIn)
	if err != nil {
		log.Fatal(err)
	}

	// Scheduler: low-quota watcher (per-binding pacing handled inside)
	c := cron.New()
	c.AddFunc("* * * * *", b.CheckLowQuota)
	c.Start()

	log.Println("Bot started...")
	b.Start()
}
