package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/clock"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/metrics"
)

type SelectionService struct {
	calendar *clock.Calendar
	menus    MenuCatalog
	store    SelectionStore
	metrics  *metrics.Metrics
}

func NewSelectionService(calendar *clock.Calendar, menus MenuCatalog, store SelectionStore, m *metrics.Metrics) *SelectionService {
	return &SelectionService{
		calendar: calendar,
		menus:    menus,
		store:    store,
		metrics:  m,
	}
}

// SubmitWeeklySelections 用 items 整体替换员工在下一周内的选餐，只能在周日提交
func (s *SelectionService) SubmitWeeklySelections(ctx context.Context, userID int64, items []domain.SelectionInput) (selections []*domain.Selection, err error) {
	defer func(start time.Time) { observe(s.metrics, "submit_weekly_selections", start, err) }(time.Now())

	if !s.calendar.IsSunday() {
		return nil, domain.ErrOutsideWindow
	}
	if len(items) == 0 {
		return nil, domain.InvalidInput("至少需要选择一个餐次")
	}

	window := s.calendar.UpcomingWeek()

	// 同一批次中重复出现的菜单以最后一次为准，但保留第一次出现的位置
	index := make(map[int64]int, len(items))
	selections = make([]*domain.Selection, 0, len(items))
	for _, item := range items {
		if item.MenuItemID <= 0 {
			return nil, domain.InvalidInput("菜单编号不合法")
		}
		if !item.ChosenDish.Valid() {
			return nil, domain.InvalidInput(fmt.Sprintf("菜单 %d 的菜品选择不合法", item.MenuItemID))
		}

		selection := &domain.Selection{
			UserID:              userID,
			MenuItemID:          item.MenuItemID,
			ChosenDish:          item.ChosenDish,
			SpecialRequirements: normalizeRequirements(item.SpecialRequirements),
		}
		if i, exists := index[item.MenuItemID]; exists {
			selections[i] = selection
			continue
		}
		index[item.MenuItemID] = len(selections)
		selections = append(selections, selection)
	}

	check := func(menu *domain.MenuItem, selection *domain.Selection) error {
		if menu == nil || !window.Contains(menu.Date) {
			return domain.InvalidMenuReference(selection.MenuItemID)
		}
		if selection.ChosenDish == domain.DishChoiceAlternative && !menu.HasAlternative() {
			return domain.AlternativeNotAvailable(selection.MenuItemID)
		}
		return nil
	}

	if err := s.store.ReplaceSelections(ctx, userID, window, selections, check); err != nil {
		return nil, domain.StorageFailure("replace selections", err)
	}

	s.metrics.IncWeeklySubmission()
	return selections, nil
}

// GetWeeklySelections 返回从 weekStart 开始 7 天内的选餐，weekStart 为零值时取本周
func (s *SelectionService) GetWeeklySelections(ctx context.Context, userID int64, weekStart time.Time) ([]*domain.SelectionWithMenu, error) {
	week := s.calendar.CurrentWeek()
	if !weekStart.IsZero() {
		week = domain.WeekFrom(weekStart)
	}

	selections, err := s.store.ListSelectionsWithMenu(ctx, userID, week)
	if err != nil {
		return nil, domain.StorageFailure("list selections", err)
	}
	return selections, nil
}

func (s *SelectionService) GetAvailableMenus(ctx context.Context) (*domain.WeeklyMenus, error) {
	week := s.calendar.UpcomingWeek()

	menus, err := s.menus.ListMenuItemsByDateRange(ctx, week)
	if err != nil {
		return nil, domain.StorageFailure("list menu items", err)
	}

	return &domain.WeeklyMenus{
		Week: week,
		Days: domain.GroupMenusByDate(menus),
	}, nil
}

// GetUsersWithoutSelection 返回在 r 内没有任何选餐的在职员工，r 为空时取下一周
func (s *SelectionService) GetUsersWithoutSelection(ctx context.Context, r domain.DateRange) ([]*domain.EmployeeIdentity, error) {
	r, err := resolveRange(r, s.calendar.UpcomingWeek())
	if err != nil {
		return nil, err
	}

	users, err := s.store.ListUsersWithoutSelection(ctx, r)
	if err != nil {
		return nil, domain.StorageFailure("list users without selection", err)
	}
	return users, nil
}

// GetSelectionStatistics 对 r 内每个已发布的菜单给出一行统计，r 为空时取本周
func (s *SelectionService) GetSelectionStatistics(ctx context.Context, r domain.DateRange) ([]*domain.SelectionStat, error) {
	r, err := resolveRange(r, s.calendar.CurrentWeek())
	if err != nil {
		return nil, err
	}

	stats, err := s.store.GetSelectionStats(ctx, r)
	if err != nil {
		return nil, domain.StorageFailure("get selection stats", err)
	}
	return stats, nil
}

func normalizeRequirements(requirements *string) *string {
	if requirements == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*requirements)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
