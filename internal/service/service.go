// Package service 实现选餐、用餐登记、统计报表以及选餐提醒的业务规则
package service

import (
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/metrics"
)

// maxRangeDays 限制统计类查询的跨度
const maxRangeDays = 366

// resolveRange 在 r 为空时返回 fallback，否则校验并规整 r
func resolveRange(r domain.DateRange, fallback domain.DateRange) (domain.DateRange, error) {
	if r.Start.IsZero() && r.End.IsZero() {
		return fallback, nil
	}
	if !r.Valid() {
		return domain.DateRange{}, domain.InvalidInput("日期范围不合法，结束日期不能早于开始日期")
	}

	r = domain.NewDateRange(r.Start, r.End)
	if r.End.Sub(r.Start) > maxRangeDays*24*time.Hour {
		return domain.DateRange{}, domain.InvalidInput("日期范围不能超过一年")
	}
	return r, nil
}

func observe(m *metrics.Metrics, operation string, start time.Time, err error) {
	m.ObserveOperation(operation, time.Since(start))
	if rej, ok := domain.AsRejection(err); ok {
		m.IncRejection(operation, string(rej.Code))
	}
}
