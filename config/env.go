package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnv 读取 .env；文件不存在时只用进程环境变量
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using process environment")
	}
}
