//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/database"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/repository"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type RepositorySuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	db        *sql.DB
	repo      *repository.Repository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("meal"),
		tcpostgres.WithUsername("meal"),
		tcpostgres.WithPassword("meal"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.Require().NoError(database.Up(dsn))

	s.db, err = sql.Open("pgx", dsn)
	s.Require().NoError(err)
	s.db.SetMaxOpenConns(30)

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 10
	s.repo = repository.NewRepository(cfg, s.db)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `TRUNCATE registrations, selections, menu_items, users RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func (s *RepositorySuite) createUser(username string, role domain.Role) *domain.User {
	user := &domain.User{
		Username:     username,
		PasswordHash: "hash",
		FullName:     "测试" + username,
		Email:        username + "@example.com",
		Role:         role,
		QRToken:      "qr-" + username,
	}
	s.Require().NoError(s.repo.CreateUser(s.ctx, user))
	return user
}

func (s *RepositorySuite) createMenu(date string, slot domain.MealSlot, alternative *string) *domain.MenuItem {
	d, err := domain.ParseDate(date)
	s.Require().NoError(err)

	menu := &domain.MenuItem{
		Date:            d,
		MealSlot:        slot,
		MainDish:        fmt.Sprintf("%s %s", date, slot),
		AlternativeDish: alternative,
	}
	s.Require().NoError(s.repo.CreateMenuItem(s.ctx, menu))
	return menu
}

func day(date string) time.Time {
	d, err := domain.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return d
}

func allow(*domain.MenuItem) error { return nil }

func (s *RepositorySuite) TestUserLookups() {
	user := s.createUser("zhangsan", domain.RoleEmployee)

	found, err := s.repo.GetUserByQRToken(s.ctx, "qr-zhangsan")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)
	s.Equal(domain.RoleEmployee, found.Role)

	_, err = s.repo.GetUserByQRToken(s.ctx, "qr-nobody")
	s.ErrorIs(err, domain.ErrNotFound)

	_, err = s.repo.GetUserByID(s.ctx, 424242)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *RepositorySuite) TestUpdateUserQRTokenUsesVersion() {
	user := s.createUser("zhangsan", domain.RoleEmployee)
	stale := *user

	user.QRToken = "qr-rotated"
	s.Require().NoError(s.repo.UpdateUserQRToken(s.ctx, user))
	s.Equal(stale.Version+1, user.Version)

	_, err := s.repo.GetUserByQRToken(s.ctx, "qr-zhangsan")
	s.ErrorIs(err, domain.ErrNotFound)
	found, err := s.repo.GetUserByQRToken(s.ctx, "qr-rotated")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)

	// 旧版本的更新不能覆盖已经轮换过的令牌
	stale.QRToken = "qr-stale"
	s.ErrorIs(s.repo.UpdateUserQRToken(s.ctx, &stale), domain.ErrNotFound)
}

func (s *RepositorySuite) TestMenuItems() {
	menu := &domain.MenuItem{
		Date:            day("2024-06-10"),
		MealSlot:        domain.MealSlotDinner,
		MainDish:        "Rice",
		SpecialDietTags: []string{"vegetarian", "halal"},
	}
	s.Require().NoError(s.repo.CreateMenuItem(s.ctx, menu))
	s.createMenu("2024-06-10", domain.MealSlotBreakfast, nil)

	got, err := s.repo.GetMenuItemByID(s.ctx, menu.ID)
	s.Require().NoError(err)
	s.Equal([]string{"vegetarian", "halal"}, got.SpecialDietTags)
	s.True(got.IsOn(day("2024-06-10")))
	s.Nil(got.AlternativeDish)

	menus, err := s.repo.ListMenuItemsByDateRange(s.ctx, domain.NewDateRange(day("2024-06-10"), day("2024-06-10")))
	s.Require().NoError(err)
	s.Require().Len(menus, 2)
	s.Equal(domain.MealSlotBreakfast, menus[0].MealSlot)
	s.Equal(domain.MealSlotDinner, menus[1].MealSlot)

	exists, err := s.repo.MenuItemExistsForDateAndSlot(s.ctx, day("2024-06-10"), domain.MealSlotDinner)
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.repo.MenuItemExistsForDateAndSlot(s.ctx, day("2024-06-10"), domain.MealSlotLunch)
	s.Require().NoError(err)
	s.False(exists)

	_, err = s.repo.GetMenuItemByID(s.ctx, 424242)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *RepositorySuite) TestConcurrentRegistrationsInsertOnce() {
	user := s.createUser("zhangsan", domain.RoleEmployee)
	menu := s.createMenu("2024-06-10", domain.MealSlotLunch, nil)

	const goroutines = 20

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		duplicate atomic.Int32
	)

	start := make(chan struct{})
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			reg := &domain.Registration{
				UserID:       user.ID,
				MenuItemID:   menu.ID,
				MealDate:     menu.Date,
				MealSlot:     menu.MealSlot,
				RegisteredAt: time.Now(),
			}
			err := s.repo.CreateRegistration(s.ctx, reg, allow)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrAlreadyRegistered):
				duplicate.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.EqualValues(1, succeeded.Load())
	s.EqualValues(goroutines-1, duplicate.Load())

	var count int
	s.Require().NoError(s.db.QueryRowContext(s.ctx, `SELECT COUNT(*) FROM registrations`).Scan(&count))
	s.Equal(1, count)
}

func (s *RepositorySuite) TestCreateRegistrationCheckSeesLockedMenu() {
	user := s.createUser("zhangsan", domain.RoleEmployee)
	rejected := errors.New("rejected")

	var seen *domain.MenuItem
	reg := &domain.Registration{UserID: user.ID, MenuItemID: 424242, MealDate: day("2024-06-10"), MealSlot: domain.MealSlotLunch, RegisteredAt: time.Now()}
	err := s.repo.CreateRegistration(s.ctx, reg, func(menu *domain.MenuItem) error {
		seen = menu
		return rejected
	})
	s.ErrorIs(err, rejected)
	s.Nil(seen)
}

func (s *RepositorySuite) TestReplaceSelectionsRollsBackOnRejection() {
	user := s.createUser("zhangsan", domain.RoleEmployee)
	monday := s.createMenu("2024-06-10", domain.MealSlotLunch, nil)
	tuesday := s.createMenu("2024-06-11", domain.MealSlotLunch, nil)
	nextWeek := s.createMenu("2024-06-17", domain.MealSlotLunch, nil)
	window := domain.WeekFrom(day("2024-06-10"))

	inWindow := func(menu *domain.MenuItem, selection *domain.Selection) error {
		if menu == nil || !window.Contains(menu.Date) {
			return domain.InvalidMenuReference(selection.MenuItemID)
		}
		return nil
	}
	anyMenu := func(*domain.MenuItem, *domain.Selection) error { return nil }

	// 下一周的选餐不在本次替换范围内，不应该被删除
	s.Require().NoError(s.repo.ReplaceSelections(s.ctx, user.ID, domain.WeekFrom(day("2024-06-17")), []*domain.Selection{
		{MenuItemID: nextWeek.ID, ChosenDish: domain.DishChoiceMain},
	}, anyMenu))

	s.Require().NoError(s.repo.ReplaceSelections(s.ctx, user.ID, window, []*domain.Selection{
		{MenuItemID: monday.ID, ChosenDish: domain.DishChoiceMain},
	}, inWindow))

	err := s.repo.ReplaceSelections(s.ctx, user.ID, window, []*domain.Selection{
		{MenuItemID: tuesday.ID, ChosenDish: domain.DishChoiceMain},
		{MenuItemID: nextWeek.ID, ChosenDish: domain.DishChoiceMain},
	}, inWindow)
	s.ErrorIs(err, domain.ErrInvalidMenuReference)

	got, err := s.repo.ListSelectionsWithMenu(s.ctx, user.ID, window)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(monday.ID, got[0].MenuItemID)
	s.Equal(monday.MainDish, got[0].Menu.MainDish)

	got, err = s.repo.ListSelectionsWithMenu(s.ctx, user.ID, domain.WeekFrom(day("2024-06-17")))
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *RepositorySuite) TestStatsKeepMenusWithoutActivity() {
	planned := s.createUser("zhangsan", domain.RoleEmployee)
	walkIn := s.createUser("lisi", domain.RoleEmployee)
	s.createUser("admin", domain.RoleAdmin)
	monday := s.createMenu("2024-06-10", domain.MealSlotLunch, ptr("Noodles"))
	tuesdayDinner := s.createMenu("2024-06-11", domain.MealSlotDinner, nil)
	window := domain.WeekFrom(day("2024-06-10"))
	anyMenu := func(*domain.MenuItem, *domain.Selection) error { return nil }

	s.Require().NoError(s.repo.ReplaceSelections(s.ctx, planned.ID, window, []*domain.Selection{
		{MenuItemID: monday.ID, ChosenDish: domain.DishChoiceAlternative, SpecialRequirements: ptr("少油")},
	}, anyMenu))

	for _, user := range []*domain.User{planned, walkIn} {
		reg := &domain.Registration{UserID: user.ID, MenuItemID: monday.ID, MealDate: monday.Date, MealSlot: monday.MealSlot, RegisteredAt: time.Now()}
		s.Require().NoError(s.repo.CreateRegistration(s.ctx, reg, allow))
	}

	selectionStats, err := s.repo.GetSelectionStats(s.ctx, window)
	s.Require().NoError(err)
	s.Require().Len(selectionStats, 2)
	s.EqualValues(1, selectionStats[0].AlternativeDishCount)
	s.Equal(domain.SelectionStat{Date: tuesdayDinner.Date, MealSlot: domain.MealSlotDinner}, *selectionStats[1])

	registrationStats, err := s.repo.GetRegistrationStats(s.ctx, window)
	s.Require().NoError(err)
	s.Require().Len(registrationStats, 2)
	s.EqualValues(2, registrationStats[0].TotalRegistrations)
	s.EqualValues(1, registrationStats[0].AlternativeSelections)
	s.EqualValues(1, registrationStats[0].SpecialRequirementsCount)
	s.EqualValues(1, registrationStats[0].WalkInCount)
	s.Zero(registrationStats[1].TotalRegistrations)

	details, err := s.repo.ListRegistrations(s.ctx, domain.RegistrationFilter{UserID: walkIn.ID, Range: window})
	s.Require().NoError(err)
	s.Require().Len(details, 1)
	s.Equal("lisi", details[0].Username)
	s.Nil(details[0].SelectedDish)

	details, err = s.repo.ListRegistrations(s.ctx, domain.RegistrationFilter{Range: window})
	s.Require().NoError(err)
	s.Len(details, 2)

	users, err := s.repo.ListUsersWithoutSelection(s.ctx, window)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(walkIn.ID, users[0].ID)
}

func ptr[T any](v T) *T {
	return &v
}
