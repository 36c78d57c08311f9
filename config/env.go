package config

import "os"

var Envs = struct {
	FRONTEND_ORIGIN string
	JWT_KEY         []byte
	POSTGRES_URL    string
	GIN_MODE        string
	LOG_LEVEL       string
	PORT            string
}{
	FRONTEND_ORIGIN: getenv("FRONTEND_ORIGIN", "localhost:3000"),
	JWT_KEY:         []byte(os.Getenv("JWT_KEY")),
	POSTGRES_URL:    os.Getenv("POSTGRES_URL"),
	GIN_MODE:        os.Getenv("GIN_MODE"),
	LOG_LEVEL:       getenv("LOG_LEVEL", "info"),
	PORT:            getenv("PORT", "5000"),
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
