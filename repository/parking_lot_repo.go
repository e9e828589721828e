package repository

import (
	"context"
	"errors"
	"fmt"
	"parkinglot/models"

	"gorm.io/gorm"
)

type GormParkingLotRepository struct {
	db *gorm.DB
}

func NewGormParkingLotRepository(db *gorm.DB) *GormParkingLotRepository {
	return &GormParkingLotRepository{db: db}
}

// Get 取得停車場設定，整個系統僅一筆
func (r *GormParkingLotRepository) Get(ctx context.Context) (*models.ParkingLot, error) {
	var lot models.ParkingLot
	if err := r.db.WithContext(ctx).First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get parking lot configuration: %w", err)
	}
	return &lot, nil
}

// Save 建立或更新停車場設定
func (r *GormParkingLotRepository) Save(ctx context.Context, lot *models.ParkingLot) error {
	if err := r.db.WithContext(ctx).Save(lot).Error; err != nil {
		return fmt.Errorf("failed to save parking lot configuration: %w", err)
	}
	return nil
}

// UpdateOccupancy 僅更新衍生的占用欄位
func (r *GormParkingLotRepository) UpdateOccupancy(ctx context.Context, id int, occupied, available int) error {
	result := r.db.WithContext(ctx).Model(&models.ParkingLot{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"occupied_spaces":  occupied,
			"available_spaces": available,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update occupancy fields: %w", result.Error)
	}
	// RowsAffected 在值未變動時為 0，不能用來判斷紀錄是否存在
	return nil
}
