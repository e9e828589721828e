package routes

import (
	"errors"
	"log"
	"net/http"
	"parkinglot/handlers"
	"parkinglot/utils"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

// 每個來源 IP 的請求上限（每分鐘）
const RequestsPerMinute = 120

// AuthMiddleware 驗證 JWT token，並提取 group_name
// token 由外部帳號服務簽發，這裡只做驗證
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"result":  false,
				"message": "缺少 Authorization 標頭",
				"error":   "Authorization header is required",
				"code":    "ERR_NO_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"result":  false,
				"message": "無效的 Authorization 格式",
				"error":   "Authorization header must be in the format 'Bearer <token>'",
				"code":    "ERR_INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		// 明確要求檢查 exp 字段
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return utils.JWTSecret, nil
		}, jwt.WithExpirationRequired())

		if err != nil {
			log.Printf("Token parsing error: %v", err)
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"result":  false,
					"message": "token 已過期",
					"error":   "Token has expired",
					"code":    "ERR_TOKEN_EXPIRED",
				})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{
					"result":  false,
					"message": "無效的 token",
					"error":   err.Error(),
					"code":    "ERR_INVALID_TOKEN",
				})
			}
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"result":  false,
				"message": "無效的 token 內容",
				"error":   "Invalid token claims or token is not valid",
				"code":    "ERR_INVALID_CLAIMS",
			})
			c.Abort()
			return
		}

		groupName, ok := claims["group_name"].(string)
		if !ok || groupName == "" {
			log.Printf("Missing or invalid group_name in token")
			c.JSON(http.StatusUnauthorized, gin.H{
				"result":  false,
				"message": "無效的群組資訊",
				"error":   "Invalid group_name in token",
				"code":    "ERR_INVALID_GROUP",
			})
			c.Abort()
			return
		}

		c.Set("group_name", groupName)
		c.Next()
	}
}

// 路由路徑片段對應到權限資源鍵，依序比對，較長的路徑要放前面
// 靜態列舉，不做任何動態反射
var keyMap = []struct {
	Pattern  string
	Resource string
}{
	{"parking/lot", "lotConfig"},
	{"parking", "parkingManage"},
}

// HTTP 方法對應到權限動作
var methodActions = map[string]string{
	http.MethodPost:   "create",
	http.MethodGet:    "read",
	http.MethodPut:    "update",
	http.MethodDelete: "delete",
}

// 群組權限矩陣：群組 → 資源 → 允許的動作
var authorityMatrix = map[string]map[string][]string{
	"admin": {
		"parkingManage": {"create", "read", "update", "delete"},
		"lotConfig":     {"create", "read", "update", "delete"},
	},
	"operator": {
		"parkingManage": {"create", "read"},
		"lotConfig":     {"read"},
	},
	"viewer": {
		"parkingManage": {"read"},
		"lotConfig":     {"read"},
	},
}

// PermissionMiddleware 依群組權限矩陣檢查目前路由是否可操作
func PermissionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		groupName, exists := c.Get("group_name")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"result":  false,
				"message": "無法獲取群組資訊",
				"error":   "Group not found in context",
				"code":    "ERR_GROUP_NOT_FOUND",
			})
			c.Abort()
			return
		}

		groupStr, ok := groupName.(string)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"result":  false,
				"message": "無效的群組類型",
				"error":   "Invalid group type",
				"code":    "ERR_INVALID_GROUP_TYPE",
			})
			c.Abort()
			return
		}

		resource := ""
		for _, entry := range keyMap {
			if strings.Contains(c.Request.URL.Path, entry.Pattern) {
				resource = entry.Resource
				break
			}
		}
		// 未列舉的路由不做權限限制
		if resource == "" {
			c.Next()
			return
		}

		authority, ok := authorityMatrix[groupStr]
		if !ok {
			log.Printf("Unknown permission group: %s", groupStr)
			c.JSON(http.StatusForbidden, gin.H{
				"result":  false,
				"message": "權限不足",
				"error":   "Unknown permission group",
				"code":    "ERR_INSUFFICIENT_PERMISSIONS",
			})
			c.Abort()
			return
		}

		action := methodActions[c.Request.Method]
		allowed := false
		for _, a := range authority[resource] {
			if a == action {
				allowed = true
				break
			}
		}
		if !allowed {
			log.Printf("Permission denied: group=%s, resource=%s, action=%s", groupStr, resource, action)
			c.JSON(http.StatusForbidden, gin.H{
				"result":  false,
				"message": "權限不足",
				"error":   "Insufficient permissions for " + resource,
				"code":    "ERR_INSUFFICIENT_PERMISSIONS",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimitMiddleware 針對來源 IP 做請求速率限制
func RateLimitMiddleware() gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(float64(RequestsPerMinute)/60.0), RequestsPerMinute)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"result":  false,
				"message": "請求過於頻繁",
				"error":   "Too many requests",
				"code":    "ERR_RATE_LIMITED",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func Path(router *gin.RouterGroup, parkingHandler *handlers.ParkingHandler, wsHandler *handlers.WebSocketHandler) {
	// 測試路由
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// 停車場路由
	parking := router.Group("/parking")
	{
		// 即時狀態推播：連線本身不需要 token
		parking.GET("/ws", wsHandler.HandleWebSocket)

		// 受保護路由：速率限制 + token 驗證 + 權限矩陣
		parkingWithAuth := parking.Group("")
		parkingWithAuth.Use(RateLimitMiddleware(), AuthMiddleware(), PermissionMiddleware())
		{
			parkingWithAuth.GET("/status", parkingHandler.GetStatus)         // 查詢停車場狀態
			parkingWithAuth.POST("/lot", parkingHandler.SetParkingLot)       // 設定停車場資訊
			parkingWithAuth.POST("/entry", parkingHandler.RegisterEntry)     // 入場登記
			parkingWithAuth.POST("/exit", parkingHandler.RegisterExit)       // 出場登記
			parkingWithAuth.GET("/current", parkingHandler.GetCurrentlyParked) // 在場車輛列表
			parkingWithAuth.GET("/history", parkingHandler.GetHistory)       // 停車歷史查詢
		}
	}
}
