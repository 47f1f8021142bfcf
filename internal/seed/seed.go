package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/utils"
)

// MenuWriter 由 repository 实现
type MenuWriter interface {
	MenuItemExistsForDateAndSlot(ctx context.Context, date time.Time, slot domain.MealSlot) (bool, error)
	CreateMenuItem(ctx context.Context, menu *domain.MenuItem) error
}

type Result struct {
	Created int
	Skipped int
}

// ImportMenus 从 CSV 导入菜单，已存在的日期和餐次会被跳过。
// 列依次为：日期,餐次,主菜,备选菜,甜点,饮食标签(以 | 分隔)，第一行是表头时自动忽略
func ImportMenus(ctx context.Context, r io.Reader, w MenuWriter) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := Result{}
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("读取 CSV 失败: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		menu, err := utils.ParseMenuCSVRecord(record)
		if err != nil {
			return result, fmt.Errorf("第 %d 行: %w", line, err)
		}

		created, err := createIfAbsent(ctx, w, menu)
		if err != nil {
			return result, fmt.Errorf("第 %d 行: %w", line, err)
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	slog.Info("菜单导入完成", "created", result.Created, "skipped", result.Skipped)
	return result, nil
}

// SeedUpcomingMenus 为从 start 开始的 days 天的每个餐次生成随机菜单
func SeedUpcomingMenus(ctx context.Context, w MenuWriter, start time.Time, days int) (Result, error) {
	result := Result{}
	for i := 0; i < days; i++ {
		date := domain.DateOf(start).AddDate(0, 0, i)
		for _, slot := range domain.MealSlots {
			created, err := createIfAbsent(ctx, w, utils.GenerateRandomMenuItem(date, slot))
			if err != nil {
				return result, err
			}
			if created {
				result.Created++
			} else {
				result.Skipped++
			}
		}
	}
	return result, nil
}

func createIfAbsent(ctx context.Context, w MenuWriter, menu *domain.MenuItem) (bool, error) {
	exists, err := w.MenuItemExistsForDateAndSlot(ctx, menu.Date, menu.MealSlot)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := w.CreateMenuItem(ctx, menu); err != nil {
		return false, err
	}
	return true, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")))
	return first == "date" || first == "日期"
}
