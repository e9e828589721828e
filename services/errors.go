package services

import "errors"

// 業務錯誤，由 handlers 以 errors.Is 判斷後轉為對應的 HTTP 狀態碼
var (
	ErrValidation       = errors.New("validation failed")
	ErrCarAlreadyParked = errors.New("vehicle already parked")
	ErrLotFull          = errors.New("no parking space available")
	ErrLotNotConfigured = errors.New("parking lot is not configured")
)
