package utils

import (
	"log"
	"os"
)

// JWTSecret 簽章驗證用密鑰，token 由外部帳號服務簽發
var JWTSecret []byte

// InitJWTSecret 從環境變數載入 JWT 密鑰
func InitJWTSecret() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Println("JWT_SECRET not set, using built-in development secret")
		secret = "parkinglot-dev-secret"
	}
	JWTSecret = []byte(secret)
}
