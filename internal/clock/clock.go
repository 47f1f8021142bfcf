// Package clock 提供服务端统一的“今天”，所有时间窗口都从这里计算
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

type Calendar struct {
	clock    clockwork.Clock
	location *time.Location
}

func New(c clockwork.Clock, location *time.Location) *Calendar {
	if location == nil {
		location = time.UTC
	}
	return &Calendar{clock: c, location: location}
}

func (c *Calendar) Location() *time.Location {
	return c.location
}

func (c *Calendar) Now() time.Time {
	return c.clock.Now().In(c.location)
}

func (c *Calendar) Today() time.Time {
	return domain.DateOf(c.Now())
}

func (c *Calendar) IsSunday() bool {
	return c.Now().Weekday() == time.Sunday
}

// UpcomingWeek 是从明天开始的 7 天，也就是每周选餐的范围
func (c *Calendar) UpcomingWeek() domain.DateRange {
	return domain.WeekFrom(c.Today().AddDate(0, 0, 1))
}

// CurrentWeek 以周日作为一周的开始，返回本周一到下周日；周日当天得到的就是即将到来的一周
func (c *Calendar) CurrentWeek() domain.DateRange {
	today := c.Today()
	monday := today.AddDate(0, 0, 1-int(today.Weekday()))
	return domain.WeekFrom(monday)
}

// RecentWeek 是截至今天（含今天）的 7 天，用于登记和报表这类回看已发生用餐的查询
func (c *Calendar) RecentWeek() domain.DateRange {
	return domain.WeekFrom(c.Today().AddDate(0, 0, -6))
}
