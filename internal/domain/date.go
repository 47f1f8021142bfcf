package domain

import "time"

const DateLayout = "2006-01-02"

// DateOf 把任意时间折算成对应日历日的 UTC 零点，所有日期比较都基于这个表示
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateRange 是闭区间 [Start, End]
type DateRange struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: DateOf(start), End: DateOf(end)}
}

// WeekFrom 返回从 start 开始的连续 7 天
func WeekFrom(start time.Time) DateRange {
	start = DateOf(start)
	return DateRange{Start: start, End: start.AddDate(0, 0, 6)}
}

func (r DateRange) Contains(date time.Time) bool {
	date = DateOf(date)
	return !date.Before(r.Start) && !date.After(r.End)
}

func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}
