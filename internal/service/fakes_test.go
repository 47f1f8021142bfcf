package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

var errStoreDown = errors.New("connection refused")

// memoryStore 在内存中实现全部存储接口，互斥锁扮演数据库事务和唯一约束的角色
type memoryStore struct {
	mu            sync.Mutex
	nextID        int64
	users         map[int64]*domain.User
	menus         map[int64]*domain.MenuItem
	selections    map[int64]*domain.Selection
	registrations []*domain.Registration
	err           error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:     1000,
		users:      make(map[int64]*domain.User),
		menus:      make(map[int64]*domain.MenuItem),
		selections: make(map[int64]*domain.Selection),
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) addUser(id int64, username, fullName string, role domain.Role) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &domain.User{
		ID:       id,
		Username: username,
		FullName: fullName,
		Email:    username + "@example.com",
		Role:     role,
		QRToken:  "token-" + username,
		IsActive: true,
	}
	s.users[id] = user
	return user
}

func (s *memoryStore) addMenu(date string, slot domain.MealSlot, mainDish string, alternative *string) *domain.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := domain.ParseDate(date)
	if err != nil {
		panic(err)
	}
	menu := &domain.MenuItem{
		ID:              s.id(),
		Date:            d,
		MealSlot:        slot,
		MainDish:        mainDish,
		AlternativeDish: alternative,
	}
	s.menus[menu.ID] = menu
	return menu
}

func (s *memoryStore) sortedMenus(r domain.DateRange) []*domain.MenuItem {
	menus := make([]*domain.MenuItem, 0)
	for _, menu := range s.menus {
		if r.Contains(menu.Date) {
			menus = append(menus, menu)
		}
	}
	slices.SortFunc(menus, func(a, b *domain.MenuItem) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.MealSlot.Order(), b.MealSlot.Order())
	})
	return menus
}

func (s *memoryStore) findSelection(userID, menuItemID int64) *domain.Selection {
	for _, selection := range s.selections {
		if selection.UserID == userID && selection.MenuItemID == menuItemID {
			return selection
		}
	}
	return nil
}

func (s *memoryStore) GetMenuItemByID(_ context.Context, id int64) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	menu, ok := s.menus[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *menu
	return &copied, nil
}

func (s *memoryStore) ListMenuItemsByDateRange(_ context.Context, r domain.DateRange) ([]*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return s.sortedMenus(r), nil
}

func (s *memoryStore) MenuItemExistsForDateAndSlot(_ context.Context, date time.Time, slot domain.MealSlot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, menu := range s.menus {
		if menu.IsOn(date) && menu.MealSlot == slot {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) ReplaceSelections(_ context.Context, userID int64, window domain.DateRange, selections []*domain.Selection, check domain.SelectionCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	snapshot := make(map[int64]*domain.Selection, len(s.selections))
	for id, selection := range s.selections {
		copied := *selection
		snapshot[id] = &copied
	}

	for id, selection := range s.selections {
		if selection.UserID != userID {
			continue
		}
		if menu, ok := s.menus[selection.MenuItemID]; ok && window.Contains(menu.Date) {
			delete(s.selections, id)
		}
	}

	for _, selection := range selections {
		if err := check(s.menus[selection.MenuItemID], selection); err != nil {
			s.selections = snapshot
			return err
		}

		if existing := s.findSelection(userID, selection.MenuItemID); existing != nil {
			existing.ChosenDish = selection.ChosenDish
			existing.SpecialRequirements = selection.SpecialRequirements
			selection.ID = existing.ID
			selection.CreatedAt = existing.CreatedAt
			continue
		}

		selection.ID = s.id()
		selection.CreatedAt = time.Now()
		copied := *selection
		s.selections[selection.ID] = &copied
	}

	return nil
}

func (s *memoryStore) ListSelectionsWithMenu(_ context.Context, userID int64, r domain.DateRange) ([]*domain.SelectionWithMenu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	result := make([]*domain.SelectionWithMenu, 0)
	for _, menu := range s.sortedMenus(r) {
		if selection := s.findSelection(userID, menu.ID); selection != nil {
			result = append(result, &domain.SelectionWithMenu{Selection: *selection, Menu: *menu})
		}
	}
	return result, nil
}

func (s *memoryStore) ListUsersWithoutSelection(_ context.Context, r domain.DateRange) ([]*domain.EmployeeIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	selected := make(map[int64]bool)
	for _, selection := range s.selections {
		if menu, ok := s.menus[selection.MenuItemID]; ok && r.Contains(menu.Date) {
			selected[selection.UserID] = true
		}
	}

	users := make([]*domain.EmployeeIdentity, 0)
	for _, user := range s.users {
		if user.Role == domain.RoleEmployee && user.IsActive && !selected[user.ID] {
			users = append(users, user.Identity())
		}
	}
	slices.SortFunc(users, func(a, b *domain.EmployeeIdentity) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return users, nil
}

func (s *memoryStore) GetSelectionStats(_ context.Context, r domain.DateRange) ([]*domain.SelectionStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	stats := make([]*domain.SelectionStat, 0)
	for _, menu := range s.sortedMenus(r) {
		stat := &domain.SelectionStat{Date: menu.Date, MealSlot: menu.MealSlot}
		users := make(map[int64]bool)
		for _, selection := range s.selections {
			if selection.MenuItemID != menu.ID {
				continue
			}
			stat.TotalSelections++
			if selection.ChosenDish == domain.DishChoiceAlternative {
				stat.AlternativeDishCount++
			} else {
				stat.MainDishCount++
			}
			users[selection.UserID] = true
		}
		stat.UniqueUsers = int64(len(users))
		stats = append(stats, stat)
	}
	return stats, nil
}

func (s *memoryStore) CreateRegistration(_ context.Context, reg *domain.Registration, check domain.MenuCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	var menu *domain.MenuItem
	if m, ok := s.menus[reg.MenuItemID]; ok {
		copied := *m
		menu = &copied
	}
	if err := check(menu); err != nil {
		return err
	}

	for _, existing := range s.registrations {
		if existing.UserID == reg.UserID && existing.MealDate.Equal(reg.MealDate) && existing.MealSlot == reg.MealSlot {
			return domain.ErrAlreadyRegistered
		}
	}

	reg.ID = s.id()
	copied := *reg
	s.registrations = append(s.registrations, &copied)
	return nil
}

func (s *memoryStore) ListRegistrations(_ context.Context, filter domain.RegistrationFilter) ([]*domain.RegistrationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	details := make([]*domain.RegistrationDetail, 0)
	for _, reg := range s.registrations {
		if filter.UserID != 0 && reg.UserID != filter.UserID {
			continue
		}
		if !filter.Range.Contains(reg.MealDate) {
			continue
		}

		user := s.users[reg.UserID]
		menu := s.menus[reg.MenuItemID]
		detail := &domain.RegistrationDetail{
			Registration:    *reg,
			Username:        user.Username,
			FullName:        user.FullName,
			MainDish:        menu.MainDish,
			AlternativeDish: menu.AlternativeDish,
		}
		if selection := s.findSelection(reg.UserID, reg.MenuItemID); selection != nil {
			chosen := selection.ChosenDish
			detail.SelectedDish = &chosen
			detail.SpecialRequirements = selection.SpecialRequirements
		}
		details = append(details, detail)
	}

	slices.SortFunc(details, func(a, b *domain.RegistrationDetail) int {
		return b.RegisteredAt.Compare(a.RegisteredAt)
	})
	return details, nil
}

func (s *memoryStore) GetRegistrationStats(_ context.Context, r domain.DateRange) ([]*domain.RegistrationStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	stats := make([]*domain.RegistrationStat, 0)
	for _, menu := range s.sortedMenus(r) {
		stat := &domain.RegistrationStat{Date: menu.Date, MealSlot: menu.MealSlot}
		for _, reg := range s.registrations {
			if reg.MenuItemID != menu.ID {
				continue
			}
			stat.TotalRegistrations++

			selection := s.findSelection(reg.UserID, reg.MenuItemID)
			switch {
			case selection == nil:
				stat.WalkInCount++
			case selection.ChosenDish == domain.DishChoiceAlternative:
				stat.AlternativeSelections++
			}
			if selection != nil && selection.SpecialRequirements != nil {
				stat.SpecialRequirementsCount++
			}
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func (s *memoryStore) registrationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registrations)
}

// directoryVerifier 直接在 memoryStore 的用户表里按令牌查找
type directoryVerifier struct {
	store *memoryStore
	err   error
}

func (v *directoryVerifier) Resolve(_ context.Context, token string) (*domain.EmployeeIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}

	v.store.mu.Lock()
	defer v.store.mu.Unlock()

	for _, user := range v.store.users {
		if user.QRToken == token && user.IsActive {
			return user.Identity(), nil
		}
	}
	return nil, domain.ErrNotFound
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []domain.MailMessage
	failAt   int // 第 failAt 次调用返回错误，0 表示不失败
	calls    int
}

func (p *recordingPublisher) Publish(_ context.Context, msg domain.MailMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.failAt != 0 && p.calls == p.failAt {
		return errors.New("channel closed")
	}
	p.messages = append(p.messages, msg)
	return nil
}

type memoryGuard struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{keys: make(map[string]time.Duration)}
}

func (g *memoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return false, g.err
	}
	if _, exists := g.keys[key]; exists {
		return false, nil
	}
	g.keys[key] = ttl
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.keys, key)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
