package store

import (
	"errors"
	"fmt"
	"time"

	"newapi-suite-bot/model"

	"gorm.io/gorm"
)

// LookupKind says which key matched during a smart lookup.
type LookupKind int

const (
	LookupNotFound LookupKind = iota
	LookupSiteID
	LookupChatID
)

// Store wraps all binding and heist-ledger queries.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) AutoMigrate() error {
	return s.DB.AutoMigrate(&model.Binding{}, &model.HeistLog{})
}

func (s *Store) BindingByChatID(chatID int64) (*model.Binding, error) {
	var b model.Binding
	err := s.DB.Where("chat_id = ?", chatID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) BindingBySiteID(siteUserID int64) (*model.Binding, error) {
	var b model.Binding
	err := s.DB.Where("site_user_id = ?", siteUserID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Lookup resolves an ambiguous identifier: site user id first, then chat id.
func (s *Store) Lookup(identifier int64) (LookupKind, *model.Binding, error) {
	if b, err := s.BindingBySiteID(identifier); err != nil {
		return LookupNotFound, nil, err
	} else if b != nil {
		return LookupSiteID, b, nil
	}
	if b, err := s.BindingByChatID(identifier); err != nil {
		return LookupNotFound, nil, err
	} else if b != nil {
		return LookupChatID, b, nil
	}
	return LookupNotFound, nil, nil
}

func (s *Store) CreateBinding(chatID, siteUserID int64) error {
	b := model.Binding{ChatID: chatID, SiteUserID: siteUserID}
	return s.DB.Create(&b).Error
}

func (s *Store) DeleteBindingByChatID(chatID int64) (int64, error) {
	res := s.DB.Where("chat_id = ?", chatID).Delete(&model.Binding{})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteBindingBySiteID(siteUserID int64) (int64, error) {
	res := s.DB.Where("site_user_id = ?", siteUserID).Delete(&model.Binding{})
	return res.RowsAffected, res.Error
}

// SetCheckInTime records the instant of a successful check-in (UTC).
func (s *Store) SetCheckInTime(chatID int64, t time.Time) error {
	return s.DB.Model(&model.Binding{}).
		Where("chat_id = ?", chatID).
		Update("last_check_in_at", t).Error
}

func (s *Store) SaveBinding(b *model.Binding) error {
	return s.DB.Save(b).Error
}

func (s *Store) ListBindings() ([]model.Binding, error) {
	var bindings []model.Binding
	if err := s.DB.Find(&bindings).Error; err != nil {
		return nil, err
	}
	return bindings, nil
}

// CountAttemptsToday counts a robber's heist rows for today. "Today" is
// evaluated by the database's own clock, not the application's.
func (s *Store) CountAttemptsToday(robberChatID int64) (int, error) {
	var n int64
	err := s.DB.Model(&model.HeistLog{}).
		Where("robber_chat_id = ? AND DATE(heist_time) = DATE('now')", robberChatID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(n), nil
}

// CountDefensesToday counts how many times a victim was successfully robbed
// today, on the database's clock.
func (s *Store) CountDefensesToday(victimSiteID int64) (int, error) {
	var n int64
	err := s.DB.Model(&model.HeistLog{}).
		Where("victim_site_id = ? AND DATE(heist_time) = DATE('now') AND outcome IN ?",
			victimSiteID, []string{model.OutcomeSuccess, model.OutcomeCritical}).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count defenses: %w", err)
	}
	return int(n), nil
}

// AppendHeistLog writes one immutable ledger row. Amount is raw quota units,
// negative for a robber-side penalty.
func (s *Store) AppendHeistLog(robberChatID, victimSiteID int64, outcome string, amount int64) error {
	entry := model.HeistLog{
		RobberChatID: robberChatID,
		VictimSiteID: victimSiteID,
		HeistTime:    time.Now().UTC(),
		Outcome:      outcome,
		Amount:       amount,
	}
	return s.DB.Create(&entry).Error
}
