package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"newapi-suite-bot/config"
	"newapi-suite-bot/economy"
	"newapi-suite-bot/model"
	"newapi-suite-bot/newapi"
	"newapi-suite-bot/store"

	"gopkg.in/telebot.v3"
)

type Bot struct {
	B       *telebot.Bot
	Store   *store.Store
	Client  *newapi.Client
	Admin   *economy.AccountAdmin
	Heist   *economy.HeistEngine
	CheckIn *economy.CheckInEngine

	cfg *config.Config
}

func New(cfg *config.Config, st *store.Store, client *newapi.Client,
	admin *economy.AccountAdmin, heist *economy.HeistEngine, checkIn *economy.CheckInEngine) (*Bot, error) {

	pref := telebot.Settings{
		Token:  cfg.BotToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := telebot.NewBot(pref)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		B:       b,
		Store:   st,
		Client:  client,
		Admin:   admin,
		Heist:   heist,
		CheckIn: checkIn,
		cfg:     cfg,
	}

	bot.registerHandlers()
	return bot, nil
}

func (bot *Bot) Start() {
	bot.B.Start()
}

func (bot *Bot) registerHandlers() {
	bot.B.Handle("/start", bot.handleStart)
	bot.B.Handle("/ping", bot.handlePing)
	bot.B.Handle("/bind", bot.handleBind)
	bot.B.Handle("/balance", bot.handleBalance)
	bot.B.Handle("/checkin", bot.handleCheckIn)
	bot.B.Handle("/heist", bot.handleHeist)
	bot.B.Handle("/alert", bot.handleAlert)

	// Admin commands
	bot.B.Handle("/lookup", bot.handleLookup)
	bot.B.Handle("/adjust", bot.handleAdjust)
	bot.B.Handle("/unbind", bot.handleUnbind)

	// Auto-unbind when a member leaves a monitored group
	bot.B.Handle(telebot.OnUserLeft, bot.handleUserLeft)
}

func (bot *Bot) isAdmin(userID int64) bool {
	for _, id := range bot.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// requireBinding resolves the sender's binding, replying with a hint and
// returning nil when the sender is not bound.
func (bot *Bot) requireBinding(c telebot.Context) *model.Binding {
	binding, err := bot.Store.BindingByChatID(c.Sender().ID)
	if err != nil {
		log.Printf("binding lookup for %d failed: %v", c.Sender().ID, err)
		c.Send("查询绑定信息时发生错误，请稍后再试。")
		return nil
	}
	if binding == nil {
		c.Send("您尚未绑定网站ID，无法进行此操作。\n请使用 /bind <您的网站ID> 指令。")
		return nil
	}
	return binding
}

// --- Handlers ---

func (bot *Bot) handleStart(c telebot.Context) error {
	return c.Send("欢迎使用 NewAPI 助手机器人！\n\n" +
		"/bind <网站ID> - 绑定网站账号\n" +
		"/balance - 查询剩余额度\n" +
		"/checkin - 每日签到\n" +
		"/heist - 回复某人的消息发起打劫\n" +
		"/alert <阈值|off> - 低额度提醒设置")
}

func (bot *Bot) handlePing(c telebot.Context) error {
	dbStatus := "✅ 已连接"
	if sqlDB, err := bot.Store.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "❌ 连接失败"
	}
	return c.Send(fmt.Sprintf("🎉 Pong! NewAPI 助手正在运行。\n数据库状态: %s", dbStatus))
}

func (bot *Bot) handleBind(c telebot.Context) error {
	siteID, err := strconv.ParseInt(strings.TrimSpace(c.Message().Payload), 10, 64)
	if err != nil {
		return c.Send("用法: /bind <网站ID>")
	}

	status, boundID, err := bot.Admin.Bind(context.Background(), c.Sender().ID, siteID)
	if err != nil {
		log.Printf("bind %d -> %d failed: %v", c.Sender().ID, siteID, err)
	}

	switch status {
	case economy.BindAlreadyBound:
		return c.Send(fmt.Sprintf("您已经与网站ID %d 绑定，无需重复绑定。", boundID))
	case economy.BindSiteUserMissing:
		return c.Send(fmt.Sprintf("审核失败：网站中不存在ID为 %d 的用户，请检查您的ID。", siteID))
	case economy.BindSiteIDTaken:
		return c.Send(fmt.Sprintf("审核失败：ID %d 已被另一位用户绑定，无法操作。", siteID))
	case economy.BindOK:
		return c.Send(fmt.Sprintf("恭喜您！绑定成功！\n您的账号现已与网站ID %d 绑定。\n已自动为您晋升至【%s】分组。",
			siteID, bot.cfg.Binding.BindingGroup))
	}
	return c.Send("绑定过程中发生未知错误，操作已自动撤销，请联系管理员。")
}

func (bot *Bot) handleBalance(c telebot.Context) error {
	binding := bot.requireBinding(c)
	if binding == nil {
		return nil
	}

	user, err := bot.Client.GetUser(context.Background(), binding.SiteUserID)
	if err != nil {
		return c.Send("查询失败，无法从网站获取您的余额信息。请稍后再试或联系管理员。")
	}

	display := float64(user.Quota) / float64(bot.cfg.Binding.QuotaDisplayRatio)
	return c.Send(fmt.Sprintf("查询成功！\n您绑定的网站ID: %d\n当前剩余额度: %.2f", binding.SiteUserID, display))
}

func (bot *Bot) handleCheckIn(c telebot.Context) error {
	binding := bot.requireBinding(c)
	if binding == nil {
		return nil
	}

	res := bot.CheckIn.Execute(context.Background(), c.Sender().ID, binding)

	switch res.Status {
	case economy.CheckInSuccess:
		switch {
		case res.IsFirst && bot.cfg.CheckIn.FirstBonusEnabled:
			return c.Send(fmt.Sprintf("🎁 首次签到成功，额外奖励已到账！\n获得额度: %.2f\n当前总额度: %.2f",
				res.DisplayAdded, res.DisplayTotal))
		case res.IsDoubled:
			return c.Send(fmt.Sprintf("🎉 签到成功，运气爆棚，奖励翻倍！\n获得额度: %.2f\n当前总额度: %.2f",
				res.DisplayAdded, res.DisplayTotal))
		default:
			return c.Send(fmt.Sprintf("✅ 签到成功！\n获得额度: %.2f\n当前总额度: %.2f",
				res.DisplayAdded, res.DisplayTotal))
		}
	case economy.CheckInDisabled:
		return c.Send("抱歉，每日签到功能当前未开启。")
	case economy.CheckInAlreadyCheckedIn:
		return c.Send("您今天已经签过到了，请明天再来吧！")
	case economy.CheckInUserNotFound:
		return c.Send("签到失败：无法获取您的网站用户信息，请联系管理员。")
	case economy.CheckInUpdateFailed:
		return c.Send("签到失败：向网站服务器更新额度时发生错误，请稍后再试。")
	}
	return c.Send("签到时发生未知错误，请联系管理员。")
}

func (bot *Bot) handleHeist(c telebot.Context) error {
	var target int64
	if reply := c.Message().ReplyTo; reply != nil && reply.Sender != nil && !reply.Sender.IsBot {
		target = reply.Sender.ID
	} else if payload := strings.TrimSpace(c.Message().Payload); payload != "" {
		id, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return c.Send("🤔 打劫谁呢？请回复目标的消息，或提供目标的网站ID。")
		}
		target = id
	} else {
		return c.Send("🤔 打劫谁呢？请回复目标的消息发起打劫。")
	}

	res := bot.Heist.Execute(context.Background(), c.Sender().ID, target)

	switch res.Status {
	case economy.HeistSuccess:
		return c.Send(fmt.Sprintf("💰 打劫成功！获得额度 %.2f", res.Gain))
	case economy.HeistCritical:
		return c.Send(fmt.Sprintf("🔥 暴击！打劫大获成功，获得额度 %.2f", res.Gain))
	case economy.HeistFailure:
		return c.Send(fmt.Sprintf("🚓 打劫失败，被罚款 %.2f", res.Penalty))
	case economy.HeistDisabled:
		return c.Send("⚔️ 打劫活动尚未开启。")
	case economy.HeistRobberNotBound:
		return c.Send("🤔 请先使用 /bind 绑定账号。")
	case economy.HeistVictimNotFound:
		return c.Send(fmt.Sprintf("💨 未找到目标 %d 的绑定记录。", target))
	case economy.HeistCannotRobSelf:
		return c.Send("🤦 不能打劫自己。")
	case economy.HeistAttemptsExceeded:
		return c.Send("🥵 今日打劫次数已用尽，明天再来吧。")
	case economy.HeistDefensesExceeded:
		return c.Send(fmt.Sprintf("🛡️ 对方今天已被打劫多次，有所防备 (ID:%d)。", res.VictimSiteID))
	case economy.HeistAPIError:
		return c.Send("发生了一个API错误，请联系管理员。")
	}
	return c.Send("❓ 发生未知错误。")
}

func (bot *Bot) handleAlert(c telebot.Context) error {
	binding := bot.requireBinding(c)
	if binding == nil {
		return nil
	}

	payload := strings.TrimSpace(c.Message().Payload)
	if strings.EqualFold(payload, "off") {
		binding.NotifyEnabled = false
		if err := bot.Store.SaveBinding(binding); err != nil {
			return c.Send("保存设置失败，请稍后再试。")
		}
		return c.Send("🔕 低额度提醒已关闭。")
	}

	threshold, err := strconv.ParseFloat(payload, 64)
	if err != nil || threshold < 0 {
		return c.Send("用法: /alert <阈值> 或 /alert off")
	}

	binding.NotifyEnabled = true
	binding.NotifyThreshold = threshold
	if err := bot.Store.SaveBinding(binding); err != nil {
		return c.Send("保存设置失败，请稍后再试。")
	}
	return c.Send(fmt.Sprintf("🔔 低额度提醒已开启，阈值: %.2f", threshold))
}

func (bot *Bot) handleLookup(c telebot.Context) error {
	if !bot.isAdmin(c.Sender().ID) {
		return nil
	}
	identifier, err := strconv.ParseInt(strings.TrimSpace(c.Message().Payload), 10, 64)
	if err != nil {
		return c.Send("用法: /lookup <网站ID或用户ID>")
	}

	kind, binding, err := bot.Store.Lookup(identifier)
	if err != nil {
		log.Printf("lookup %d failed: %v", identifier, err)
		return c.Send("查询时发生错误，请检查后台日志。")
	}

	switch kind {
	case store.LookupSiteID:
		return c.Send(fmt.Sprintf("✅ 查询成功！输入的是【网站ID】\n网站ID: %d\n已绑定至用户: %d\n绑定时间: %s",
			binding.SiteUserID, binding.ChatID, binding.CreatedAt.Format("2006-01-02 15:04:05")))
	case store.LookupChatID:
		return c.Send(fmt.Sprintf("✅ 查询成功！输入的是【用户ID】\n用户ID: %d\n已绑定至网站ID: %d\n绑定时间: %s",
			binding.ChatID, binding.SiteUserID, binding.CreatedAt.Format("2006-01-02 15:04:05")))
	}
	return c.Send(fmt.Sprintf("❌ 查询失败：未在绑定记录中找到与 %d 相关的任何信息。", identifier))
}

func (bot *Bot) handleAdjust(c telebot.Context) error {
	if !bot.isAdmin(c.Sender().ID) {
		return nil
	}
	args := strings.Fields(c.Message().Payload)
	if len(args) != 2 {
		return c.Send("用法: /adjust <网站ID或用户ID> <调整额度>")
	}
	identifier, err1 := strconv.ParseInt(args[0], 10, 64)
	delta, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil {
		return c.Send("用法: /adjust <网站ID或用户ID> <调整额度>")
	}

	res := bot.Admin.AdjustBalance(context.Background(), identifier, delta)

	switch res.Status {
	case economy.AdjustOK:
		action := "增加"
		abs := delta
		if delta < 0 {
			action = "减少"
			abs = -delta
		}
		return c.Send(fmt.Sprintf("✅ 操作成功！\n目标用户ID: %d\n已为其%s显示额度: %.2f\n该用户当前总显示额度为: %.2f",
			res.SiteUserID, action, abs, res.NewDisplayQuota))
	case economy.AdjustUserNotFound:
		return c.Send(fmt.Sprintf("❌ 操作失败：未在绑定记录中找到与 %d 相关的用户。", identifier))
	case economy.AdjustFetchFailed:
		return c.Send(fmt.Sprintf("❌ 操作失败：无法从网站获取ID为 %d 的用户信息。", res.SiteUserID))
	case economy.AdjustUpdateFailed:
		return c.Send(fmt.Sprintf("❌ 操作失败：向网站更新ID为 %d 的余额时发生错误。", res.SiteUserID))
	}
	return nil
}

func (bot *Bot) handleUnbind(c telebot.Context) error {
	if !bot.isAdmin(c.Sender().ID) {
		return nil
	}
	siteID, err := strconv.ParseInt(strings.TrimSpace(c.Message().Payload), 10, 64)
	if err != nil {
		return c.Send("用法: /unbind <网站ID>")
	}

	ok, binding, err := bot.Admin.Purge(context.Background(), siteID)
	if err != nil {
		log.Printf("purge %d failed: %v", siteID, err)
	}

	if ok {
		return c.Send(fmt.Sprintf("✅ 操作成功！\n已解除网站ID %d 与用户 %d 的绑定。", siteID, binding.ChatID))
	}
	if binding == nil {
		return c.Send(fmt.Sprintf("❌ 操作无效：未找到网站ID %d 的绑定记录。", siteID))
	}
	return c.Send(fmt.Sprintf("❌ 操作失败：解除网站ID %d 的绑定时发生错误，请检查后台日志。", siteID))
}

// handleUserLeft purges the binding of anyone leaving a monitored group.
func (bot *Bot) handleUserLeft(c telebot.Context) error {
	chatID := c.Chat().ID
	monitored := false
	for _, id := range bot.cfg.MonitoredChats {
		if id == chatID {
			monitored = true
			break
		}
	}
	if !monitored {
		return nil
	}

	left := c.Message().UserLeft
	if left == nil || left.IsBot {
		return nil
	}

	binding, err := bot.Store.BindingByChatID(left.ID)
	if err != nil || binding == nil {
		return nil
	}

	ok, _, err := bot.Admin.Purge(context.Background(), binding.SiteUserID)
	if err != nil {
		log.Printf("auto purge for %d failed: %v", left.ID, err)
	}
	if ok {
		log.Printf("user %d (site %d) left chat %d, binding purged", left.ID, binding.SiteUserID, chatID)
		return c.Send(fmt.Sprintf("成员 %s (%d) 已离开群聊，其绑定的网站数据已自动解绑，用户组已重置。",
			left.FirstName, left.ID))
	}
	return nil
}
