package utils

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

// ParseDateParam 解析形如 2006-01-02 的查询参数，参数缺失时返回零值
func ParseDateParam(query url.Values, name string) (time.Time, error) {
	value := strings.TrimSpace(query.Get(name))
	if value == "" {
		return time.Time{}, nil
	}

	date, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("参数 %s 的日期格式错误，应为 YYYY-MM-DD", name)
	}
	return date, nil
}

// ParseDateRangeParams 解析 startDate 和 endDate，两者要么同时给出要么都不给
func ParseDateRangeParams(query url.Values) (domain.DateRange, error) {
	start, err := ParseDateParam(query, "startDate")
	if err != nil {
		return domain.DateRange{}, err
	}
	end, err := ParseDateParam(query, "endDate")
	if err != nil {
		return domain.DateRange{}, err
	}

	if start.IsZero() != end.IsZero() {
		return domain.DateRange{}, fmt.Errorf("startDate 和 endDate 必须同时提供")
	}
	if start.IsZero() {
		return domain.DateRange{}, nil
	}
	if end.Before(start) {
		return domain.DateRange{}, fmt.Errorf("结束日期不能早于开始日期")
	}

	return domain.NewDateRange(start, end), nil
}

// ParseMenuCSVRecord 校验导入文件中的一行菜单：日期,餐次,主菜,备选菜,甜点,饮食标签(以 | 分隔)
func ParseMenuCSVRecord(record []string) (*domain.MenuItem, error) {
	if len(record) < 3 {
		return nil, fmt.Errorf("至少需要日期、餐次和主菜三列，实际为 %d 列", len(record))
	}

	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	optional := func(i int) *string {
		if v := field(i); v != "" {
			return &v
		}
		return nil
	}

	date, err := domain.ParseDate(field(0))
	if err != nil {
		return nil, fmt.Errorf("日期 %q 格式错误", field(0))
	}

	slot := domain.MealSlot(strings.ToLower(field(1)))
	if !slot.Valid() {
		return nil, fmt.Errorf("餐次 %q 不合法", field(1))
	}

	mainDish := field(2)
	if mainDish == "" {
		return nil, fmt.Errorf("主菜不能为空")
	}

	menu := &domain.MenuItem{
		Date:            date,
		MealSlot:        slot,
		MainDish:        mainDish,
		AlternativeDish: optional(3),
		Dessert:         optional(4),
	}
	for _, tag := range strings.Split(field(5), "|") {
		if tag = strings.TrimSpace(tag); tag != "" {
			menu.SpecialDietTags = append(menu.SpecialDietTags, tag)
		}
	}

	return menu, nil
}
