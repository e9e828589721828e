package repository

import (
	"context"
	"errors"
	"parkinglot/models"
	"time"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("duplicate record")

// HistoryFilter 停車歷史查詢條件
// StartTime/EndTime 必須成對出現才會套用區間過濾（含邊界）
type HistoryFilter struct {
	CarNumber string
	StartTime *time.Time
	EndTime   *time.Time
}

// ParkingRepository 停車紀錄台帳的存取介面
type ParkingRepository interface {
	Create(ctx context.Context, record *models.Parking) error
	FindOpenByCarNumber(ctx context.Context, carNumber string) (*models.Parking, error)
	CountOpen(ctx context.Context) (int64, error)
	UpdateExitTime(ctx context.Context, id int, exitTime time.Time) error
	FindAllOpen(ctx context.Context) ([]models.Parking, error)
	FindAll(ctx context.Context, filter HistoryFilter, page, limit int) (int64, []models.Parking, error)
}

// ParkingLotRepository 停車場設定（singleton）的存取介面
type ParkingLotRepository interface {
	Get(ctx context.Context) (*models.ParkingLot, error)
	Save(ctx context.Context, lot *models.ParkingLot) error
	UpdateOccupancy(ctx context.Context, id int, occupied, available int) error
}
