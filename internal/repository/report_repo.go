package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lapstuen/badminton-signup-sub001/internal/domain"
)

type ReportRepo struct{ db *gorm.DB }

func NewReportRepo(db *gorm.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.WeeklyBalanceReport{})
}

// Create appends a report as the next version for its week. Earlier versions
// are kept; the audit trail is never overwritten.
func (r *ReportRepo) Create(ctx context.Context, rep *domain.WeeklyBalanceReport) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest domain.WeeklyBalanceReport
		err := tx.Where("week_id = ?", rep.WeekID).
			Order("version DESC").First(&latest).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rep.Version = 1
		case err != nil:
			return err
		default:
			rep.Version = latest.Version + 1
		}
		if rep.ID == "" {
			rep.ID = uuid.NewString()
		}
		return tx.Create(rep).Error
	})
}

// ByWeek returns the authoritative (latest) version for a week.
func (r *ReportRepo) ByWeek(ctx context.Context, weekID string) (*domain.WeeklyBalanceReport, error) {
	var rep domain.WeeklyBalanceReport
	err := r.db.WithContext(ctx).Where("week_id = ?", weekID).
		Order("version DESC").First(&rep).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepo) List(ctx context.Context, limit int) ([]domain.WeeklyBalanceReport, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []domain.WeeklyBalanceReport
	err := r.db.WithContext(ctx).
		Order("start_date DESC, version DESC").Limit(limit).
		Find(&out).Error
	return out, err
}
