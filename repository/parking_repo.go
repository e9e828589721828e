package repository

import (
	"context"
	"errors"
	"fmt"
	"parkinglot/models"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type GormParkingRepository struct {
	db *gorm.DB
}

func NewGormParkingRepository(db *gorm.DB) *GormParkingRepository {
	return &GormParkingRepository{db: db}
}

func (r *GormParkingRepository) Create(ctx context.Context, record *models.Parking) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if mysqlErr, ok := err.(*mysql.MySQLError); ok && mysqlErr.Number == 1062 {
			return fmt.Errorf("%w: car_number %s", ErrDuplicateEntry, record.CarNumber)
		}
		return fmt.Errorf("failed to create parking record for %s: %w", record.CarNumber, err)
	}
	return nil
}

// FindOpenByCarNumber 查詢該車牌仍在場內的紀錄（exit_time IS NULL）
func (r *GormParkingRepository) FindOpenByCarNumber(ctx context.Context, carNumber string) (*models.Parking, error) {
	var record models.Parking
	err := r.db.WithContext(ctx).
		Where("car_number = ? AND exit_time IS NULL", carNumber).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find open record for %s: %w", carNumber, err)
	}
	return &record, nil
}

func (r *GormParkingRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Parking{}).
		Where("exit_time IS NULL").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count open parking records: %w", err)
	}
	return count, nil
}

func (r *GormParkingRepository) UpdateExitTime(ctx context.Context, id int, exitTime time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Parking{}).
		Where("id = ?", id).
		Update("exit_time", exitTime)
	if result.Error != nil {
		return fmt.Errorf("failed to update exit time for record %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormParkingRepository) FindAllOpen(ctx context.Context) ([]models.Parking, error) {
	var records []models.Parking
	if err := r.db.WithContext(ctx).
		Where("exit_time IS NULL").
		Order("entry_time DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list open parking records: %w", err)
	}
	return records, nil
}

// FindAll 依條件分頁查詢全部紀錄，entry_time 由新到舊
// 時間區間僅在起訖皆提供時套用，且為含邊界比較
func (r *GormParkingRepository) FindAll(ctx context.Context, filter HistoryFilter, page, limit int) (int64, []models.Parking, error) {
	query := r.db.WithContext(ctx).Model(&models.Parking{})
	if filter.CarNumber != "" {
		query = query.Where("car_number = ?", filter.CarNumber)
	}
	if filter.StartTime != nil && filter.EndTime != nil {
		query = query.Where("entry_time BETWEEN ? AND ?", *filter.StartTime, *filter.EndTime)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to count parking history: %w", err)
	}

	var records []models.Parking
	offset := (page - 1) * limit
	if err := query.
		Order("entry_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to query parking history: %w", err)
	}
	return total, records, nil
}
