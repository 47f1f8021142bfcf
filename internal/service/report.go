package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/clock"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/metrics"
	"golang.org/x/sync/errgroup"
)

type ReportService struct {
	calendar      *clock.Calendar
	menus         MenuCatalog
	selections    SelectionStore
	registrations RegistrationStore
	metrics       *metrics.Metrics
}

func NewReportService(calendar *clock.Calendar, menus MenuCatalog, selections SelectionStore, registrations RegistrationStore, m *metrics.Metrics) *ReportService {
	return &ReportService{
		calendar:      calendar,
		menus:         menus,
		selections:    selections,
		registrations: registrations,
		metrics:       m,
	}
}

// GetReport 对 r 内每个已发布的菜单汇总预选和实际就餐情况，r 为空时取截至今天的 7 天
func (s *ReportService) GetReport(ctx context.Context, r domain.DateRange) (reports []*domain.SlotReport, err error) {
	defer func(start time.Time) { observe(s.metrics, "get_report", start, err) }(time.Now())

	r, err = resolveRange(r, s.calendar.RecentWeek())
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	s.buildReport(gctx, g, r, &reports)
	if err := g.Wait(); err != nil {
		return nil, domain.StorageFailure("build report", err)
	}
	return reports, nil
}

// GetDailyReport 返回某一天的报表以及下一周还没有选餐的员工数，date 为零值时取今天
func (s *ReportService) GetDailyReport(ctx context.Context, date time.Time) (report *domain.DailyReport, err error) {
	defer func(start time.Time) { observe(s.metrics, "get_daily_report", start, err) }(time.Now())

	if date.IsZero() {
		date = s.calendar.Today()
	}
	report = &domain.DailyReport{
		Date:         domain.DateOf(date),
		UpcomingWeek: s.calendar.UpcomingWeek(),
	}

	g, gctx := errgroup.WithContext(ctx)
	s.buildReport(gctx, g, domain.NewDateRange(date, date), &report.Slots)
	g.Go(func() error {
		users, err := s.selections.ListUsersWithoutSelection(gctx, report.UpcomingWeek)
		if err != nil {
			return err
		}
		report.UsersWithoutSelection = len(users)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, domain.StorageFailure("build daily report", err)
	}
	return report, nil
}

// buildReport 并发读取菜单和两类统计，全部完成后把合并结果写入 dst
func (s *ReportService) buildReport(ctx context.Context, g *errgroup.Group, r domain.DateRange, dst *[]*domain.SlotReport) {
	var (
		menus         []*domain.MenuItem
		selectionStat []*domain.SelectionStat
		registerStat  []*domain.RegistrationStat
	)

	queries := &errgroup.Group{}
	queries.Go(func() error {
		var err error
		menus, err = s.menus.ListMenuItemsByDateRange(ctx, r)
		return err
	})
	queries.Go(func() error {
		var err error
		selectionStat, err = s.selections.GetSelectionStats(ctx, r)
		return err
	})
	queries.Go(func() error {
		var err error
		registerStat, err = s.registrations.GetRegistrationStats(ctx, r)
		return err
	})

	g.Go(func() error {
		if err := queries.Wait(); err != nil {
			return err
		}
		*dst = mergeSlotReports(menus, selectionStat, registerStat)
		return nil
	})
}

type slotKey struct {
	date string
	slot domain.MealSlot
}

func keyOf(date time.Time, slot domain.MealSlot) slotKey {
	return slotKey{date: date.Format(domain.DateLayout), slot: slot}
}

// mergeSlotReports 以菜单为准，没有任何预选或登记的菜单也会得到一行零值
func mergeSlotReports(menus []*domain.MenuItem, selectionStats []*domain.SelectionStat, registrationStats []*domain.RegistrationStat) []*domain.SlotReport {
	selections := make(map[slotKey]*domain.SelectionStat, len(selectionStats))
	for _, stat := range selectionStats {
		selections[keyOf(stat.Date, stat.MealSlot)] = stat
	}
	registrations := make(map[slotKey]*domain.RegistrationStat, len(registrationStats))
	for _, stat := range registrationStats {
		registrations[keyOf(stat.Date, stat.MealSlot)] = stat
	}

	reports := make([]*domain.SlotReport, 0, len(menus))
	for _, menu := range menus {
		report := &domain.SlotReport{
			Date:            domain.DateOf(menu.Date),
			MealSlot:        menu.MealSlot,
			MenuItemID:      menu.ID,
			MainDish:        menu.MainDish,
			AlternativeDish: menu.AlternativeDish,
		}

		key := keyOf(menu.Date, menu.MealSlot)
		if stat, ok := selections[key]; ok {
			report.PlannedTotal = stat.TotalSelections
			report.PlannedMain = stat.MainDishCount
			report.PlannedAlternative = stat.AlternativeDishCount
			report.PlannedUsers = stat.UniqueUsers
		}
		if stat, ok := registrations[key]; ok {
			report.Registered = stat.TotalRegistrations
			report.RegisteredAlternative = stat.AlternativeSelections
			report.SpecialRequirements = stat.SpecialRequirementsCount
			report.WalkIns = stat.WalkInCount
		}

		reports = append(reports, report)
	}

	slices.SortFunc(reports, func(a, b *domain.SlotReport) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.MealSlot.Order(), b.MealSlot.Order())
	})
	return reports
}
