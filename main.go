package main

import (
	"context"
	"log"
	"os"
	"parkinglot/database"
	"parkinglot/handlers"
	"parkinglot/models"
	"parkinglot/repository"
	"parkinglot/routes"
	"parkinglot/services"
	"parkinglot/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// 載入 .env 檔案
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using default environment variables: %v", err)
	}

	// 初始化 JWTSecret
	utils.InitJWTSecret()

	// 初始化資料庫
	database.InitDB()

	// 執行資料庫遷移
	database.DB.AutoMigrate(
		&models.Parking{},
		&models.ParkingLot{},
	)
	log.Println("Database migration completed")

	// 組裝台帳與設定的存取層、占用引擎
	parkingRepo := repository.NewGormParkingRepository(database.DB)
	lotRepo := repository.NewGormParkingLotRepository(database.DB)
	occupancyService := services.NewOccupancyService(parkingRepo, lotRepo)

	// 啟動 websocket 狀態推播
	wsManager := handlers.NewWebSocketManager()
	go wsManager.Start()

	parkingHandler := handlers.NewParkingHandler(occupancyService, wsManager)
	wsHandler := handlers.NewWebSocketHandler(wsManager)

	// 設置 Gin 模式為 release
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "" {
		ginMode = gin.ReleaseMode
	}
	gin.SetMode(ginMode)
	log.Printf("Gin mode set to %s", ginMode)

	// 初始化 Gin 路由器
	r := gin.Default()

	// 創建一個 API 路由組
	api := r.Group("/api")
	{
		routes.Path(api, parkingHandler, wsHandler)
	}

	// 啟動定時任務
	c := cron.New()

	// 占用欄位重算定時任務（每 5 分鐘執行一次）
	_, err := c.AddFunc("*/5 * * * *", func() {
		log.Println("Resyncing parking lot occupancy...")
		if err := occupancyService.SyncOccupancy(context.Background()); err != nil {
			log.Printf("Failed to resync occupancy: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule occupancy resync cron job: %v", err)
	}

	c.Start()
	log.Println("Cron jobs started")

	// 啟動伺服器
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
