package models

import "time"

// ParkingLot 停車場設定，整個系統只有一筆（singleton）
// occupied_spaces 與 available_spaces 為衍生欄位，
// 每次異動後由 OccupancyService 依在場車輛數重新計算，不可直接寫入
type ParkingLot struct {
	ID              int       `json:"id" gorm:"primaryKey;autoIncrement;type:INT"`
	TotalSpaces     int       `json:"total_spaces" gorm:"type:INT;not null;default:0"`          // 全部車位數
	OccupiedSpaces  int       `json:"occupied_spaces" gorm:"type:INT;not null;default:0"`       // 在場車輛數
	AvailableSpaces int       `json:"available_spaces" gorm:"type:INT;not null;default:0"`      // 剩餘車位數，容量調降時可能為負
	PricePerHour    float64   `json:"price_per_hour" gorm:"type:decimal(10,2);not null;default:0"` // 每小時費率
	PricePerMinute  float64   `json:"price_per_minute" gorm:"type:decimal(10,2);default:0"`        // 每分鐘費率
	SettingTime     int       `json:"setting_time" gorm:"type:INT;default:60"`                     // 計費時間單位（分鐘）
	CreatedAt       time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (ParkingLot) TableName() string {
	return "parking_lot"
}

// ParkingLotStatusResponse 停車場狀態回應結構
type ParkingLotStatusResponse struct {
	TotalSpaces     int     `json:"total_spaces"`
	OccupiedSpaces  int     `json:"occupied_spaces"`
	AvailableSpaces int     `json:"available_spaces"`
	PricePerHour    float64 `json:"price_per_hour"`
	PricePerMinute  float64 `json:"price_per_minute"`
	SettingTime     int     `json:"setting_time"`
}

func (p *ParkingLot) ToStatusResponse() ParkingLotStatusResponse {
	return ParkingLotStatusResponse{
		TotalSpaces:     p.TotalSpaces,
		OccupiedSpaces:  p.OccupiedSpaces,
		AvailableSpaces: p.AvailableSpaces,
		PricePerHour:    p.PricePerHour,
		PricePerMinute:  p.PricePerMinute,
		SettingTime:     p.SettingTime,
	}
}

// SetParkingLotRequest 用於 POST /parking/lot 設定
type SetParkingLotRequest struct {
	TotalSpaces    *int     `json:"total_spaces" binding:"required,gte=0"`
	PricePerHour   *float64 `json:"price_per_hour" binding:"required,gte=0"`
	PricePerMinute *float64 `json:"price_per_minute" binding:"omitempty,gte=0"`
	SettingTime    *int     `json:"setting_time" binding:"omitempty,gte=1"`
}

// ParkingEntryRequest 入場登記
type ParkingEntryRequest struct {
	CarNumber string `json:"car_number" binding:"required"`
}

// ParkingExitRequest 出場登記
type ParkingExitRequest struct {
	CarNumber string `json:"car_number" binding:"required"`
}
