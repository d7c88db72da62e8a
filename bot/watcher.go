package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"gopkg.in/telebot.v3"
)

// How often one binding is re-checked by the watcher at most.
const watchInterval = 60 * time.Minute

// CheckLowQuota is called by the cron scheduler every minute. It refreshes
// the quota of bindings with alerts enabled, at most once per watchInterval
// each, and notifies the owner when the display quota drops below their
// threshold.
func (bot *Bot) CheckLowQuota() {
	bindings, err := bot.Store.ListBindings()
	if err != nil {
		log.Printf("watcher: list bindings failed: %v", err)
		return
	}

	ratio := float64(bot.cfg.Binding.QuotaDisplayRatio)

	for i := range bindings {
		b := &bindings[i]
		if !b.NotifyEnabled {
			continue
		}
		if time.Since(b.LastCheckedAt) < watchInterval {
			continue
		}

		user, err := bot.Client.GetUser(context.Background(), b.SiteUserID)
		if err != nil {
			log.Printf("watcher: fetch quota for site %d failed: %v", b.SiteUserID, err)
			continue
		}

		display := float64(user.Quota) / ratio
		if display < b.NotifyThreshold {
			msg := fmt.Sprintf("⚠️ 低额度预警！\n\n网站ID: %d\n当前剩余额度: %.2f\n预警阈值: %.2f",
				b.SiteUserID, display, b.NotifyThreshold)
			if _, err := bot.B.Send(&telebot.User{ID: b.ChatID}, msg); err != nil {
				log.Printf("watcher: notify %d failed: %v", b.ChatID, err)
			}
		}

		b.LastQuota = display
		b.LastCheckedAt = time.Now()
		if err := bot.Store.SaveBinding(b); err != nil {
			log.Printf("watcher: save binding %d failed: %v", b.ID, err)
		}
	}
}
