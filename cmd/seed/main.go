package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/clock"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/database"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/seed"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/utils"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机员工, 2: 为接下来 n 天生成随机菜单, 3: 从 CSV 导入菜单)")
	flag.IntVar(&n, "n", 7, "要插入的员工数量或菜单天数")
	flag.StringVar(&file, "file", "./menus.csv", "要导入的菜单 CSV 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := database.Open(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)
	ctx := context.Background()

	switch op {
	case 0:
		logger.Error("未指定操作")
	case 1:
		if n <= 0 {
			logger.Error("请输入合法的员工数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
			if err != nil {
				logger.Error("无法生成随机员工", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(ctx, user); err != nil {
				logger.Error("无法插入员工", slog.String("username", user.Username), slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		logger.Info("插入员工成功", slog.Int("count", cnt))
	case 2:
		if n <= 0 {
			logger.Error("请输入合法的天数")
			return
		}

		location, err := cfg.Location()
		if err != nil {
			logger.Error("无法加载时区", "error", err)
			return
		}

		// 从明天开始，与每周选餐的范围一致
		calendar := clock.New(clockwork.NewRealClock(), location)
		start := calendar.Today().AddDate(0, 0, 1)

		result, err := seed.SeedUpcomingMenus(ctx, repo, start, n)
		if err != nil {
			logger.Error("无法生成菜单", slog.String("error", err.Error()))
			return
		}
		logger.Info("生成菜单成功", slog.Int("created", result.Created), slog.Int("skipped", result.Skipped), slog.String("start", start.Format(time.DateOnly)))
	case 3:
		f, err := os.Open(file)
		if err != nil {
			logger.Error("打开文件失败", "file", file, "error", err)
			return
		}
		defer f.Close()

		if _, err := seed.ImportMenus(ctx, f, repo); err != nil {
			logger.Error("导入菜单失败", slog.String("error", err.Error()))
			return
		}
	default:
		logger.Error("指定的操作非法")
	}
}
