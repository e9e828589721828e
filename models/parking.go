// models/parking.go
package models

import "time"

// Parking 停車紀錄（台帳），每次進場建立一筆
type Parking struct {
	ID        int        `json:"id" gorm:"primaryKey;autoIncrement;type:INT"`
	CarNumber string     `json:"car_number" gorm:"type:varchar(20);not null;index:idx_car_number"` // 車牌號碼
	EntryTime time.Time  `json:"entry_time" gorm:"type:datetime(3);not null;index:idx_entry_time"` // 入場時間
	ExitTime  *time.Time `json:"exit_time" gorm:"type:datetime(3);default:null"`                   // 出場時間，NULL 表示仍在場內
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Parking) TableName() string {
	return "parking"
}

// IsOpen 判斷車輛是否仍在場內
func (p *Parking) IsOpen() bool {
	return p.ExitTime == nil
}

type ParkingResponse struct {
	ID        int        `json:"id"`
	CarNumber string     `json:"car_number"`
	EntryTime time.Time  `json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (p *Parking) ToResponse() ParkingResponse {
	return ParkingResponse{
		ID:        p.ID,
		CarNumber: p.CarNumber,
		EntryTime: p.EntryTime,
		ExitTime:  p.ExitTime,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ParkingExitResponse 出場回應，附帶停車時間（分鐘）
type ParkingExitResponse struct {
	ParkingResponse
	ParkingMinutes int `json:"parking_minutes"`
}

func (p *Parking) ToExitResponse(parkingMinutes int) ParkingExitResponse {
	return ParkingExitResponse{
		ParkingResponse: p.ToResponse(),
		ParkingMinutes:  parkingMinutes,
	}
}

// ParkingHistoryResponse 停車歷史分頁查詢結果
type ParkingHistoryResponse struct {
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Items []ParkingResponse `json:"items"`
}
