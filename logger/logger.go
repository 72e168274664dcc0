package logger

import (
	"os"

	"go.uber.org/zap"
)

func InitLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
