package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/database"
)

func main() {
	var action string
	flag.StringVar(&action, "action", "up", "要执行的迁移操作 (up, down, version)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	switch action {
	case "up":
		if err := database.Up(cfg.Database.DSN); err != nil {
			logger.Error("数据库迁移失败", "error", err)
			os.Exit(1)
		}
	case "down":
		if err := database.Down(cfg.Database.DSN); err != nil {
			logger.Error("数据库回滚失败", "error", err)
			os.Exit(1)
		}
	case "version":
	default:
		logger.Error("指定的操作非法", "action", action)
		os.Exit(1)
	}

	version, dirty, err := database.Version(cfg.Database.DSN)
	if err != nil {
		logger.Error("无法获取数据库版本", "error", err)
		os.Exit(1)
	}
	logger.Info("当前数据库版本", "version", version, "dirty", dirty)
}
