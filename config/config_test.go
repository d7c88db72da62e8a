package config

import "testing"

func setRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("API_ACCESS_TOKEN", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Binding.QuotaDisplayRatio != 500000 {
		t.Errorf("ratio = %d, want 500000", cfg.Binding.QuotaDisplayRatio)
	}
	if cfg.API.AdminUserID != "1" {
		t.Errorf("admin user id = %q, want 1", cfg.API.AdminUserID)
	}
	if cfg.Heist.FailureChance != 0.5 || cfg.Heist.FailurePenalty != 100.0 {
		t.Errorf("heist defaults = %v/%v", cfg.Heist.FailureChance, cfg.Heist.FailurePenalty)
	}
	if cfg.Heist.MinAmount != 5.0 || cfg.Heist.MaxAmount != 40.0 || cfg.Heist.CriticalChance != 0.1 {
		t.Errorf("heist range defaults = %v..%v crit %v", cfg.Heist.MinAmount, cfg.Heist.MaxAmount, cfg.Heist.CriticalChance)
	}
	if cfg.Heist.MaxAttemptsPerDay != 1 || cfg.Heist.MaxDefensesPerDay != 3 {
		t.Errorf("heist limits = %d/%d, want 1/3", cfg.Heist.MaxAttemptsPerDay, cfg.Heist.MaxDefensesPerDay)
	}
	if cfg.Heist.Enabled || cfg.CheckIn.Enabled {
		t.Error("features enabled by default")
	}
}

func TestLoadParsesLists(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_IDS", "1,2,3")
	t.Setenv("MONITORED_CHATS", "-100123,-100456")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AdminIDs) != 3 || cfg.AdminIDs[2] != 3 {
		t.Errorf("AdminIDs = %v", cfg.AdminIDs)
	}
	if len(cfg.MonitoredChats) != 2 || cfg.MonitoredChats[0] != -100123 {
		t.Errorf("MonitoredChats = %v", cfg.MonitoredChats)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "")
		t.Setenv("API_BASE_URL", "https://api.example.com")
		t.Setenv("API_ACCESS_TOKEN", "secret")
		if _, err := Load(); err == nil {
			t.Error("missing BOT_TOKEN accepted")
		}
	})

	t.Run("bad ratio", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BINDING_QUOTA_DISPLAY_RATIO", "0")
		if _, err := Load(); err == nil {
			t.Error("zero ratio accepted")
		}
	})

	t.Run("chance out of range", func(t *testing.T) {
		setRequired(t)
		t.Setenv("HEIST_FAILURE_CHANCE", "1.5")
		if _, err := Load(); err == nil {
			t.Error("failure chance > 1 accepted")
		}
	})
}
