package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"parkinglot/models"
	"parkinglot/repository"
	"parkinglot/services"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// 測試用記憶體存取層，行為與 MySQL 版一致

type stubParkingRepo struct {
	mu      sync.Mutex
	records []*models.Parking
	nextID  int
}

func (s *stubParkingRepo) Create(ctx context.Context, record *models.Parking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	stored := *record
	s.records = append(s.records, &stored)
	return nil
}

func (s *stubParkingRepo) FindOpenByCarNumber(ctx context.Context, carNumber string) (*models.Parking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.CarNumber == carNumber && r.ExitTime == nil {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubParkingRepo) CountOpen(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, r := range s.records {
		if r.ExitTime == nil {
			count++
		}
	}
	return count, nil
}

func (s *stubParkingRepo) UpdateExitTime(ctx context.Context, id int, exitTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			t := exitTime
			r.ExitTime = &t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *stubParkingRepo) FindAllOpen(ctx context.Context) ([]models.Parking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []models.Parking
	for _, r := range s.records {
		if r.ExitTime == nil {
			open = append(open, *r)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].EntryTime.After(open[j].EntryTime)
	})
	return open, nil
}

func (s *stubParkingRepo) FindAll(ctx context.Context, filter repository.HistoryFilter, page, limit int) (int64, []models.Parking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Parking
	for _, r := range s.records {
		if filter.CarNumber != "" && r.CarNumber != filter.CarNumber {
			continue
		}
		if filter.StartTime != nil && filter.EndTime != nil {
			if r.EntryTime.Before(*filter.StartTime) || r.EntryTime.After(*filter.EndTime) {
				continue
			}
		}
		matched = append(matched, *r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].EntryTime.After(matched[j].EntryTime)
	})
	total := int64(len(matched))
	offset := (page - 1) * limit
	if offset >= len(matched) {
		return total, nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return total, matched[offset:end], nil
}

type stubLotRepo struct {
	mu  sync.Mutex
	lot *models.ParkingLot
}

func (s *stubLotRepo) Get(ctx context.Context) (*models.ParkingLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil {
		return nil, repository.ErrNotFound
	}
	copied := *s.lot
	return &copied, nil
}

func (s *stubLotRepo) Save(ctx context.Context, lot *models.ParkingLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot.ID == 0 {
		lot.ID = 1
	}
	stored := *lot
	s.lot = &stored
	return nil
}

func (s *stubLotRepo) UpdateOccupancy(ctx context.Context, id int, occupied, available int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lot == nil || s.lot.ID != id {
		return repository.ErrNotFound
	}
	s.lot.OccupiedSpaces = occupied
	s.lot.AvailableSpaces = available
	return nil
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := services.NewOccupancyService(&stubParkingRepo{}, &stubLotRepo{})
	handler := NewParkingHandler(svc, nil)

	r := gin.New()
	parking := r.Group("/api/parking")
	{
		parking.GET("/status", handler.GetStatus)
		parking.POST("/lot", handler.SetParkingLot)
		parking.POST("/entry", handler.RegisterEntry)
		parking.POST("/exit", handler.RegisterExit)
		parking.GET("/current", handler.GetCurrentlyParked)
		parking.GET("/history", handler.GetHistory)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func configureLot(t *testing.T, r *gin.Engine, totalSpaces int) {
	t.Helper()
	price := 100.0
	w, _ := doJSON(t, r, http.MethodPost, "/api/parking/lot", gin.H{
		"total_spaces":   totalSpaces,
		"price_per_hour": price,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("lot configuration failed with status %d: %s", w.Code, w.Body.String())
	}
}

func TestGetStatusCreatesDefaults(t *testing.T) {
	r := setupRouter(t)

	w, resp := doJSON(t, r, http.MethodGet, "/api/parking/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !resp.Result {
		t.Fatalf("result = false, want true: %+v", resp)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data payload: %T", resp.Data)
	}
	if data["total_spaces"].(float64) != 0 {
		t.Fatalf("total_spaces = %v, want 0", data["total_spaces"])
	}
	if data["setting_time"].(float64) != 60 {
		t.Fatalf("setting_time = %v, want 60", data["setting_time"])
	}
}

func TestSetParkingLotMissingFields(t *testing.T) {
	r := setupRouter(t)

	// total_spaces 與 price_per_hour 為必填
	w, resp := doJSON(t, r, http.MethodPost, "/api/parking/lot", gin.H{"total_spaces": 10})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Result {
		t.Fatalf("result = true, want false")
	}
	if resp.Error == "" {
		t.Fatalf("expected error detail in response")
	}
}

func TestRegisterEntrySuccess(t *testing.T) {
	r := setupRouter(t)
	configureLot(t, r, 5)

	w, resp := doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "ABC123"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data payload: %T", resp.Data)
	}
	if data["car_number"] != "ABC123" {
		t.Fatalf("car_number = %v, want ABC123", data["car_number"])
	}
	if data["exit_time"] != nil {
		t.Fatalf("open record must carry null exit_time: %v", data["exit_time"])
	}
}

func TestRegisterEntryLotFull(t *testing.T) {
	r := setupRouter(t)
	configureLot(t, r, 1)

	if w, _ := doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "AAA111"}); w.Code != http.StatusOK {
		t.Fatalf("first entry status = %d, want 200", w.Code)
	}

	w, resp := doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "BBB222"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Result {
		t.Fatalf("result = true, want false")
	}
}

func TestRegisterEntryDuplicate(t *testing.T) {
	r := setupRouter(t)
	configureLot(t, r, 5)

	doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "ABC123"})
	w, _ := doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "ABC123"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRegisterExitUnknownCar(t *testing.T) {
	r := setupRouter(t)
	configureLot(t, r, 5)

	w, resp := doJSON(t, r, http.MethodPost, "/api/parking/exit", gin.H{"car_number": "GHOST99"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp.Result {
		t.Fatalf("result = true, want false")
	}
}

func TestRegisterExitReturnsMinutes(t *testing.T) {
	r := setupRouter(t)
	configureLot(t, r, 5)

	doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "ABC123"})
	w, resp := doJSON(t, r, http.MethodPost, "/api/parking/exit", gin.H{"car_number": "ABC123"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data payload: %T", resp.Data)
	}
	if _, present := data["parking_minutes"]; !present {
		t.Fatalf("exit response must carry parking_minutes: %v", data)
	}
	if _, present := data["exit_time"]; !present {
		t.Fatalf("exit response must carry exit_time: %v", data)
	}
}

func TestGetHistoryInvalidDate(t *testing.T) {
	r := setupRouter(t)
	configureLot(t, r, 5)

	w, resp := doJSON(t, r, http.MethodGet, "/api/parking/history?start_date=not-a-date", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Result {
		t.Fatalf("result = true, want false")
	}
}

func TestGetHistoryPaginationDefaults(t *testing.T) {
	r := setupRouter(t)
	configureLot(t, r, 5)
	doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "ABC123"})

	w, resp := doJSON(t, r, http.MethodGet, "/api/parking/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data payload: %T", resp.Data)
	}
	if data["page"].(float64) != 1 || data["limit"].(float64) != 20 {
		t.Fatalf("page/limit = %v/%v, want 1/20", data["page"], data["limit"])
	}
	if data["total"].(float64) != 1 {
		t.Fatalf("total = %v, want 1", data["total"])
	}
}

func TestGetCurrentlyParked(t *testing.T) {
	r := setupRouter(t)
	configureLot(t, r, 5)
	doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "AAA111"})
	doJSON(t, r, http.MethodPost, "/api/parking/entry", gin.H{"car_number": "BBB222"})
	doJSON(t, r, http.MethodPost, "/api/parking/exit", gin.H{"car_number": "AAA111"})

	w, resp := doJSON(t, r, http.MethodGet, "/api/parking/current", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	items, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("unexpected data payload: %T", resp.Data)
	}
	if len(items) != 1 {
		t.Fatalf("parked count = %d, want 1", len(items))
	}
}
