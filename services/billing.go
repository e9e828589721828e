package services

import (
	"math"
	"time"
)

// CalculateParkingMinutes 計算停車時間（分鐘），不足一分鐘無條件進位
// exit 早於 entry 時會回傳負值，視為資料品質問題，不在此處修正
func CalculateParkingMinutes(entryTime, exitTime time.Time) int {
	elapsedMs := exitTime.Sub(entryTime).Milliseconds()
	return int(math.Ceil(float64(elapsedMs) / 60000.0))
}
