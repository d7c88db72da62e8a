package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full bot configuration, loaded once at startup.
// Feature defaults live in the envDefault tags.
type Config struct {
	BotToken string `env:"BOT_TOKEN"`
	DBPath   string `env:"DB_PATH" envDefault:"newapi_suite.db"`

	// Telegram user ids allowed to run admin commands.
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
	// Group chats whose member-left events trigger an automatic unbind.
	MonitoredChats []int64 `env:"MONITORED_CHATS" envSeparator:","`

	API     API     `envPrefix:"API_"`
	Binding Binding `envPrefix:"BINDING_"`
	Heist   Heist   `envPrefix:"HEIST_"`
	CheckIn CheckIn `envPrefix:"CHECKIN_"`
}

// API configures access to the NewAPI instance.
type API struct {
	BaseURL     string `env:"BASE_URL"`
	AccessToken string `env:"ACCESS_TOKEN"`
	AdminUserID string `env:"ADMIN_USER_ID" envDefault:"1"`
}

// Binding holds settings shared by all quota features.
type Binding struct {
	// QuotaDisplayRatio converts raw quota units to the user-facing
	// decimal amount: display = raw / ratio.
	QuotaDisplayRatio int64  `env:"QUOTA_DISPLAY_RATIO" envDefault:"500000"`
	BindingGroup      string `env:"GROUP" envDefault:"default"`
	RevertGroup       string `env:"REVERT_GROUP" envDefault:"default"`
}

// Heist configures the PvP heist feature.
type Heist struct {
	Enabled           bool    `env:"ENABLED" envDefault:"false"`
	FailureChance     float64 `env:"FAILURE_CHANCE" envDefault:"0.5"`
	FailurePenalty    float64 `env:"FAILURE_PENALTY" envDefault:"100.0"`
	MinAmount         float64 `env:"MIN_AMOUNT" envDefault:"5.0"`
	MaxAmount         float64 `env:"MAX_AMOUNT" envDefault:"40.0"`
	CriticalChance    float64 `env:"CRITICAL_CHANCE" envDefault:"0.1"`
	MaxAttemptsPerDay int     `env:"MAX_ATTEMPTS_PER_DAY" envDefault:"1"`
	MaxDefensesPerDay int     `env:"MAX_DEFENSES_PER_DAY" envDefault:"3"`
}

// CheckIn configures the daily check-in feature.
type CheckIn struct {
	Enabled             bool    `env:"ENABLED" envDefault:"false"`
	TimezoneOffsetHours int     `env:"TZ_OFFSET_HOURS" envDefault:"0"`
	FirstBonusEnabled   bool    `env:"FIRST_BONUS_ENABLED" envDefault:"false"`
	FirstBonusQuota     float64 `env:"FIRST_BONUS_QUOTA" envDefault:"0"`
	DoubleChance        float64 `env:"DOUBLE_CHANCE" envDefault:"0"`
	MinDisplayQuota     float64 `env:"MIN_DISPLAY_QUOTA" envDefault:"0"`
	MaxDisplayQuota     float64 `env:"MAX_DISPLAY_QUOTA" envDefault:"0"`
}

// Load reads .env (if present) and the environment into a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("missing required env: BOT_TOKEN")
	}
	if cfg.API.BaseURL == "" || cfg.API.AccessToken == "" {
		return nil, fmt.Errorf("missing required env: API_BASE_URL/API_ACCESS_TOKEN")
	}
	if cfg.Binding.QuotaDisplayRatio <= 0 {
		return nil, fmt.Errorf("BINDING_QUOTA_DISPLAY_RATIO must be > 0, got %d", cfg.Binding.QuotaDisplayRatio)
	}
	for name, chance := range map[string]float64{
		"HEIST_FAILURE_CHANCE":  cfg.Heist.FailureChance,
		"HEIST_CRITICAL_CHANCE": cfg.Heist.CriticalChance,
		"CHECKIN_DOUBLE_CHANCE": cfg.CheckIn.DoubleChance,
	} {
		if chance < 0 || chance > 1 {
			return nil, fmt.Errorf("%s must be within [0,1], got %v", name, chance)
		}
	}

	return cfg, nil
}
