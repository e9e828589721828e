package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"parkinglot/models"
	"parkinglot/repository"
	"strings"
	"sync"
	"time"
)

// LotConfigInput 停車場設定輸入
// PricePerMinute 未提供時為 0，SettingTime 未提供時為 60
type LotConfigInput struct {
	TotalSpaces    int
	PricePerHour   float64
	PricePerMinute float64
	SettingTime    int
}

// OccupancyService 依台帳（parking 表）推導停車場占用狀態，
// 並在每次異動後維持 occupied + available == total 的不變量。
// 入出場屬於先查後寫的序列，必須以 mu 對單一停車場互斥執行，
// 否則兩個併發入場可能同時通過容量檢查（見 RegisterEntry）。
type OccupancyService struct {
	parkingRepo repository.ParkingRepository
	lotRepo     repository.ParkingLotRepository
	mu          sync.Mutex
	now         func() time.Time
}

func NewOccupancyService(parkingRepo repository.ParkingRepository, lotRepo repository.ParkingLotRepository) *OccupancyService {
	return &OccupancyService{
		parkingRepo: parkingRepo,
		lotRepo:     lotRepo,
		now:         time.Now,
	}
}

// GetStatus 查詢停車場狀態；設定不存在時以預設值建立，
// 並在回傳前依在場車輛數重算占用欄位
func (s *OccupancyService) GetStatus(ctx context.Context) (*models.ParkingLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lot, err := s.lotRepo.Get(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		lot = &models.ParkingLot{SettingTime: 60}
		if err := s.lotRepo.Save(ctx, lot); err != nil {
			return nil, err
		}
		log.Printf("Parking lot configuration not found, created with defaults")
	}

	currentParkedCount, err := s.parkingRepo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}

	// available 在容量調降到低於在場數時可能為負，照實呈現不做修正
	lot.OccupiedSpaces = int(currentParkedCount)
	lot.AvailableSpaces = lot.TotalSpaces - int(currentParkedCount)
	if err := s.lotRepo.UpdateOccupancy(ctx, lot.ID, lot.OccupiedSpaces, lot.AvailableSpaces); err != nil {
		return nil, err
	}
	return lot, nil
}

// SetLotConfig 建立或更新停車場設定，靜態欄位覆寫後依在場車輛數重算占用欄位
// 對既有停車紀錄沒有任何影響
func (s *OccupancyService) SetLotConfig(ctx context.Context, input LotConfigInput) (*models.ParkingLot, error) {
	if input.TotalSpaces < 0 {
		return nil, fmt.Errorf("%w: total_spaces must be >= 0", ErrValidation)
	}
	if input.PricePerHour < 0 {
		return nil, fmt.Errorf("%w: price_per_hour must be >= 0", ErrValidation)
	}
	if input.PricePerMinute < 0 {
		return nil, fmt.Errorf("%w: price_per_minute must be >= 0", ErrValidation)
	}
	if input.SettingTime == 0 {
		input.SettingTime = 60
	}
	if input.SettingTime < 1 {
		return nil, fmt.Errorf("%w: setting_time must be >= 1", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	currentParkedCount, err := s.parkingRepo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}

	lot, err := s.lotRepo.Get(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		lot = &models.ParkingLot{}
	}

	lot.TotalSpaces = input.TotalSpaces
	lot.PricePerHour = input.PricePerHour
	lot.PricePerMinute = input.PricePerMinute
	lot.SettingTime = input.SettingTime
	lot.OccupiedSpaces = int(currentParkedCount)
	lot.AvailableSpaces = input.TotalSpaces - int(currentParkedCount)

	if err := s.lotRepo.Save(ctx, lot); err != nil {
		return nil, err
	}
	log.Printf("Parking lot configuration saved: total=%d, occupied=%d, available=%d",
		lot.TotalSpaces, lot.OccupiedSpaces, lot.AvailableSpaces)
	return lot, nil
}

// RegisterEntry 入場登記
// 容量檢查與寫入必須在同一個互斥區段內完成：
// 只剩一個車位時，兩個併發入場絕不能同時成功
func (s *OccupancyService) RegisterEntry(ctx context.Context, carNumber string) (*models.Parking, error) {
	carNumber = strings.TrimSpace(carNumber)
	if carNumber == "" {
		return nil, fmt.Errorf("%w: car_number is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 同一車牌同時只能有一筆在場紀錄
	if _, err := s.parkingRepo.FindOpenByCarNumber(ctx, carNumber); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrCarAlreadyParked, carNumber)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	lot, err := s.lotRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLotNotConfigured
		}
		return nil, err
	}

	currentParkedCount, err := s.parkingRepo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}
	if currentParkedCount >= int64(lot.TotalSpaces) {
		return nil, fmt.Errorf("%w: %d/%d spaces occupied", ErrLotFull, currentParkedCount, lot.TotalSpaces)
	}

	record := &models.Parking{
		CarNumber: carNumber,
		EntryTime: s.now(),
		ExitTime:  nil,
	}
	if err := s.parkingRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	occupied := int(currentParkedCount) + 1
	if err := s.lotRepo.UpdateOccupancy(ctx, lot.ID, occupied, lot.TotalSpaces-occupied); err != nil {
		return nil, err
	}

	log.Printf("Entry registered: %s (occupied %d/%d)", carNumber, occupied, lot.TotalSpaces)
	return record, nil
}

// RegisterExit 出場登記，回傳關帳後的紀錄與停車時間（分鐘）
func (s *OccupancyService) RegisterExit(ctx context.Context, carNumber string) (*models.Parking, int, error) {
	carNumber = strings.TrimSpace(carNumber)
	if carNumber == "" {
		return nil, 0, fmt.Errorf("%w: car_number is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.parkingRepo.FindOpenByCarNumber(ctx, carNumber)
	if err != nil {
		return nil, 0, err
	}

	exitTime := s.now()
	if err := s.parkingRepo.UpdateExitTime(ctx, record.ID, exitTime); err != nil {
		return nil, 0, err
	}
	record.ExitTime = &exitTime

	// 設定不存在時靜默跳過占用欄位更新（與原行為一致）
	if err := s.recomputeOccupancy(ctx); err != nil {
		return nil, 0, err
	}

	parkingMinutes := CalculateParkingMinutes(record.EntryTime, exitTime)
	log.Printf("Exit registered: %s, parked %d minutes", carNumber, parkingMinutes)
	return record, parkingMinutes, nil
}

// ListCurrentlyParked 查詢在場車輛，入場時間由新到舊
func (s *OccupancyService) ListCurrentlyParked(ctx context.Context) ([]models.Parking, error) {
	return s.parkingRepo.FindAllOpen(ctx)
}

// ListHistory 分頁查詢全部停車紀錄（在場與已出場）
func (s *OccupancyService) ListHistory(ctx context.Context, filter repository.HistoryFilter, page, limit int) (*models.ParkingHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	total, records, err := s.parkingRepo.FindAll(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.ParkingResponse, len(records))
	for i, record := range records {
		items[i] = record.ToResponse()
	}
	return &models.ParkingHistoryResponse{
		Total: total,
		Page:  page,
		Limit: limit,
		Items: items,
	}, nil
}

// SyncOccupancy 依台帳重算占用欄位，由定時任務呼叫
// 設定不存在時不做任何事
func (s *OccupancyService) SyncOccupancy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeOccupancy(ctx)
}

// recomputeOccupancy 呼叫端必須已持有 s.mu
func (s *OccupancyService) recomputeOccupancy(ctx context.Context) error {
	lot, err := s.lotRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	currentParkedCount, err := s.parkingRepo.CountOpen(ctx)
	if err != nil {
		return err
	}
	occupied := int(currentParkedCount)
	return s.lotRepo.UpdateOccupancy(ctx, lot.ID, occupied, lot.TotalSpaces-occupied)
}
