package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lighterdash/internal/account"
	storemodel "lighterdash/internal/store/model"
)

type AccountSnapshotModel = storemodel.AccountSnapshotModel

const maxRecentLimit = 1000

// AccountStore persists account snapshot history using Gorm + SQLite.
type AccountStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAccountStore(path string) (*AccountStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&AccountSnapshotModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &AccountStore{db: db, now: time.Now}, nil
}

func (s *AccountStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores the derived figures of an adopted tracker state.
func (s *AccountStore) Record(ctx context.Context, state account.TrackerState) error {
	if state.Summary == nil {
		return fmt.Errorf("gorm store: snapshot without summary")
	}
	positions, err := json.Marshal(state.Positions)
	if err != nil {
		return fmt.Errorf("gorm store: encode positions: %w", err)
	}
	working := 0
	for _, o := range state.Orders {
		if o.Status.Working() {
			working++
		}
	}
	takenAt := state.RefreshedAt
	if takenAt.IsZero() {
		takenAt = s.now()
	}
	row := AccountSnapshotModel{
		ID:                  uuid.NewString(),
		RefreshID:           state.RefreshID,
		AccountID:           state.Summary.AccountID,
		TakenAt:             takenAt.UTC(),
		BalanceUSD:          state.Summary.BalanceUSD,
		EquityUSD:           state.Summary.EquityUSD,
		AggregateUnrealized: account.AggregateUnrealizedPnl(state.Positions),
		AggregateMarginUsed: account.AggregateMarginUsed(state.Positions),
		EffectiveLeverage:   account.EffectiveLeverage(*state.Summary, state.Positions),
		PositionCount:       len(state.Positions),
		OrderCount:          len(state.Orders),
		WorkingOrderCount:   working,
		PositionsJSON:       datatypes.JSON(positions),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Recent returns up to limit snapshots, newest first.
func (s *AccountStore) Recent(ctx context.Context, limit int) ([]AccountSnapshotModel, error) {
	if limit <= 0 || limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	var rows []AccountSnapshotModel
	err := s.db.WithContext(ctx).
		Order("taken_at DESC, created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Prune deletes snapshots taken before cutoff and reports how many went.
func (s *AccountStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("taken_at < ?", cutoff.UTC()).
		Delete(&AccountSnapshotModel{})
	return res.RowsAffected, res.Error
}
