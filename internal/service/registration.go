package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/clock"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/metrics"
)

var errSlotMismatch = domain.InvalidInput("餐次与菜单不一致")

type RegistrationService struct {
	calendar *clock.Calendar
	menus    MenuCatalog
	store    RegistrationStore
	verifier TokenVerifier
	metrics  *metrics.Metrics
}

func NewRegistrationService(calendar *clock.Calendar, menus MenuCatalog, store RegistrationStore, verifier TokenVerifier, m *metrics.Metrics) *RegistrationService {
	return &RegistrationService{
		calendar: calendar,
		menus:    menus,
		store:    store,
		verifier: verifier,
		metrics:  m,
	}
}

// RegisterSelf 为员工本人登记今天的某一餐
func (s *RegistrationService) RegisterSelf(ctx context.Context, userID int64, menuItemID int64, slot domain.MealSlot) (reg *domain.Registration, err error) {
	defer func(start time.Time) { observe(s.metrics, "register_self", start, err) }(time.Now())

	if !slot.Valid() {
		return nil, domain.InvalidInput("餐次不合法")
	}

	today := s.calendar.Today()

	// 事务外先查一次，以便区分菜单不存在和不是今天的菜单
	menu, err := s.menus.GetMenuItemByID(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrMenuNotFound
		}
		return nil, domain.StorageFailure("get menu item", err)
	}
	if err := checkSelfMenu(menu, today, slot); err != nil {
		return nil, err
	}

	reg = &domain.Registration{
		UserID:       userID,
		MenuItemID:   menuItemID,
		MealDate:     today,
		MealSlot:     slot,
		RegisteredAt: s.calendar.Now(),
	}

	// 菜单可能在两次读取之间被修改，事务内需要再校验一次
	check := func(menu *domain.MenuItem) error {
		return checkSelfMenu(menu, today, slot)
	}
	if err := s.store.CreateRegistration(ctx, reg, check); err != nil {
		return nil, domain.StorageFailure("create registration", err)
	}

	s.metrics.IncRegistration(metrics.SourceSelf)
	return reg, nil
}

func checkSelfMenu(menu *domain.MenuItem, today time.Time, slot domain.MealSlot) error {
	switch {
	case menu == nil:
		return domain.ErrMenuNotFound
	case !menu.IsOn(today):
		return domain.ErrMenuNotToday
	case menu.MealSlot != slot:
		return errSlotMismatch
	}
	return nil
}

// VerifyAndRegister 解析扫码得到的令牌并为对应员工登记今天的某一餐
func (s *RegistrationService) VerifyAndRegister(ctx context.Context, token string, menuItemID int64, slot domain.MealSlot) (result *domain.ScanResult, err error) {
	defer func(start time.Time) { observe(s.metrics, "verify_and_register", start, err) }(time.Now())

	if !slot.Valid() {
		return nil, domain.InvalidInput("餐次不合法")
	}

	employee, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	today := s.calendar.Today()
	reg := &domain.Registration{
		UserID:       employee.ID,
		MenuItemID:   menuItemID,
		MealDate:     today,
		MealSlot:     slot,
		RegisteredAt: s.calendar.Now(),
	}

	// 扫码台只区分能否登记，不区分菜单不存在、不是今天或餐次不一致
	check := func(menu *domain.MenuItem) error {
		if menu == nil || !menu.IsOn(today) || menu.MealSlot != slot {
			return domain.ErrInvalidMenuOrNotToday
		}
		return nil
	}
	if err := s.store.CreateRegistration(ctx, reg, check); err != nil {
		return nil, domain.StorageFailure("create registration", err)
	}

	s.metrics.IncRegistration(metrics.SourceScan)
	return &domain.ScanResult{
		Registration: reg,
		Username:     employee.Username,
		DisplayName:  employee.DisplayName(),
	}, nil
}

// VerifyToken 解析令牌并返回今天的全部菜单，供扫码台选择餐次
func (s *RegistrationService) VerifyToken(ctx context.Context, token string) (result *domain.TokenVerification, err error) {
	defer func(start time.Time) { observe(s.metrics, "verify_token", start, err) }(time.Now())

	employee, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	today := s.calendar.Today()
	menus, err := s.menus.ListMenuItemsByDateRange(ctx, domain.NewDateRange(today, today))
	if err != nil {
		return nil, domain.StorageFailure("list menu items", err)
	}

	return &domain.TokenVerification{
		Employee: employee,
		Menus:    menus,
	}, nil
}

func (s *RegistrationService) resolve(ctx context.Context, token string) (*domain.EmployeeIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	employee, err := s.verifier.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, domain.StorageFailure("resolve token", err)
	}
	return employee, nil
}

// GetDailyRegistrations 返回某一天的登记记录，date 为零值时取今天
func (s *RegistrationService) GetDailyRegistrations(ctx context.Context, date time.Time) ([]*domain.RegistrationDetail, error) {
	if date.IsZero() {
		date = s.calendar.Today()
	}
	return s.listRegistrations(ctx, domain.RegistrationFilter{Range: domain.NewDateRange(date, date)})
}

func (s *RegistrationService) GetWeeklyRegistrations(ctx context.Context, r domain.DateRange) ([]*domain.RegistrationDetail, error) {
	r, err := resolveRange(r, s.calendar.RecentWeek())
	if err != nil {
		return nil, err
	}
	return s.listRegistrations(ctx, domain.RegistrationFilter{Range: r})
}

func (s *RegistrationService) GetUserRegistrations(ctx context.Context, userID int64, r domain.DateRange) ([]*domain.RegistrationDetail, error) {
	if userID <= 0 {
		return nil, domain.InvalidInput("员工编号不合法")
	}

	r, err := resolveRange(r, s.calendar.RecentWeek())
	if err != nil {
		return nil, err
	}
	return s.listRegistrations(ctx, domain.RegistrationFilter{UserID: userID, Range: r})
}

func (s *RegistrationService) listRegistrations(ctx context.Context, filter domain.RegistrationFilter) ([]*domain.RegistrationDetail, error) {
	registrations, err := s.store.ListRegistrations(ctx, filter)
	if err != nil {
		return nil, domain.StorageFailure("list registrations", err)
	}
	return registrations, nil
}

func (s *RegistrationService) GetRegistrationStats(ctx context.Context, r domain.DateRange) ([]*domain.RegistrationStat, error) {
	r, err := resolveRange(r, s.calendar.RecentWeek())
	if err != nil {
		return nil, err
	}

	stats, err := s.store.GetRegistrationStats(ctx, r)
	if err != nil {
		return nil, domain.StorageFailure("get registration stats", err)
	}
	return stats, nil
}
