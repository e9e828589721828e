// handlers/parking.go
package handlers

import (
	"errors"
	"log"
	"net/http"
	"parkinglot/models"
	"parkinglot/repository"
	"parkinglot/services"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type ParkingHandler struct {
	occupancyService *services.OccupancyService
	wsManager        *WebSocketManager
}

func NewParkingHandler(occupancyService *services.OccupancyService, wsManager *WebSocketManager) *ParkingHandler {
	return &ParkingHandler{
		occupancyService: occupancyService,
		wsManager:        wsManager,
	}
}

// GetStatus 查詢停車場狀態
// GET /parking/status
func (h *ParkingHandler) GetStatus(c *gin.Context) {
	lot, err := h.occupancyService.GetStatus(c.Request.Context())
	if err != nil {
		log.Printf("Failed to get parking lot status: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "查詢停車場狀態失敗", err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "查詢停車場狀態成功", lot.ToStatusResponse())
}

// SetParkingLot 設定/修改停車場資訊
// POST /parking/lot
func (h *ParkingHandler) SetParkingLot(c *gin.Context) {
	var req models.SetParkingLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Invalid parking lot configuration input: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "輸入值驗證失敗", err.Error())
		return
	}

	input := services.LotConfigInput{
		TotalSpaces:  *req.TotalSpaces,
		PricePerHour: *req.PricePerHour,
	}
	if req.PricePerMinute != nil {
		input.PricePerMinute = *req.PricePerMinute
	}
	if req.SettingTime != nil {
		input.SettingTime = *req.SettingTime
	}

	lot, err := h.occupancyService.SetLotConfig(c.Request.Context(), input)
	if err != nil {
		h.respondServiceError(c, "停車場設定失敗", err)
		return
	}

	h.broadcastStatus(c)
	SuccessResponse(c, http.StatusOK, "停車場設定成功", lot)
}

// RegisterEntry 入場登記
// POST /parking/entry
func (h *ParkingHandler) RegisterEntry(c *gin.Context) {
	var req models.ParkingEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Invalid entry input: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "輸入值驗證失敗", err.Error())
		return
	}

	record, err := h.occupancyService.RegisterEntry(c.Request.Context(), req.CarNumber)
	if err != nil {
		h.respondServiceError(c, "入場登記失敗", err)
		return
	}

	h.broadcastStatus(c)
	SuccessResponse(c, http.StatusOK, "入場登記成功", record.ToResponse())
}

// RegisterExit 出場登記，回應附帶停車時間（分鐘）
// POST /parking/exit
func (h *ParkingHandler) RegisterExit(c *gin.Context) {
	var req models.ParkingExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Invalid exit input: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "輸入值驗證失敗", err.Error())
		return
	}

	record, parkingMinutes, err := h.occupancyService.RegisterExit(c.Request.Context(), req.CarNumber)
	if err != nil {
		h.respondServiceError(c, "出場登記失敗", err)
		return
	}

	h.broadcastStatus(c)
	SuccessResponse(c, http.StatusOK, "出場登記成功", record.ToExitResponse(parkingMinutes))
}

// GetCurrentlyParked 查詢在場車輛列表
// GET /parking/current
func (h *ParkingHandler) GetCurrentlyParked(c *gin.Context) {
	records, err := h.occupancyService.ListCurrentlyParked(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list currently parked vehicles: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "在場車輛查詢失敗", err.Error())
		return
	}

	responses := make([]models.ParkingResponse, len(records))
	for i, record := range records {
		responses[i] = record.ToResponse()
	}
	SuccessResponse(c, http.StatusOK, "在場車輛查詢成功", responses)
}

// GetHistory 分頁查詢停車歷史
// GET /parking/history?car_number=&start_date=&end_date=&page=&limit=
func (h *ParkingHandler) GetHistory(c *gin.Context) {
	filter := repository.HistoryFilter{
		CarNumber: c.Query("car_number"),
	}

	if startStr := c.Query("start_date"); startStr != "" {
		start, err := parseHistoryTime(startStr)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "輸入值驗證失敗", "invalid start_date: "+startStr)
			return
		}
		filter.StartTime = &start
	}
	if endStr := c.Query("end_date"); endStr != "" {
		end, err := parseHistoryTime(endStr)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "輸入值驗證失敗", "invalid end_date: "+endStr)
			return
		}
		filter.EndTime = &end
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	history, err := h.occupancyService.ListHistory(c.Request.Context(), filter, page, limit)
	if err != nil {
		log.Printf("Failed to query parking history: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "停車歷史查詢失敗", err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "停車歷史查詢成功", history)
}

// respondServiceError 將業務錯誤轉為對應的 HTTP 狀態碼
// 驗證/業務規則 400、查無紀錄 404、其餘 500
func (h *ParkingHandler) respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrCarAlreadyParked),
		errors.Is(err, services.ErrLotFull),
		errors.Is(err, services.ErrLotNotConfigured):
		ErrorResponse(c, http.StatusBadRequest, message, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, message, err.Error())
	default:
		log.Printf("%s: %v", message, err)
		ErrorResponse(c, http.StatusInternalServerError, message, err.Error())
	}
}

// broadcastStatus 異動成功後推播最新狀態給 websocket 訂閱者
func (h *ParkingHandler) broadcastStatus(c *gin.Context) {
	if h.wsManager == nil {
		return
	}
	lot, err := h.occupancyService.GetStatus(c.Request.Context())
	if err != nil {
		log.Printf("Failed to load status for websocket broadcast: %v", err)
		return
	}
	h.wsManager.BroadcastStatus(lot.ToStatusResponse())
}

// parseHistoryTime 接受 RFC3339 或 YYYY-MM-DD（視為當日零時）
func parseHistoryTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
