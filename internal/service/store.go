package service

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

// 以下接口由 repository 包实现。查不到记录时统一返回 domain.ErrNotFound

type MenuCatalog interface {
	GetMenuItemByID(ctx context.Context, id int64) (*domain.MenuItem, error)
	ListMenuItemsByDateRange(ctx context.Context, r domain.DateRange) ([]*domain.MenuItem, error)
	MenuItemExistsForDateAndSlot(ctx context.Context, date time.Time, slot domain.MealSlot) (bool, error)
}

type SelectionStore interface {
	// ReplaceSelections 在同一个事务内删除员工在 window 内的全部选餐，再逐条调用 check 校验并写入；
	// check 返回错误时整个事务回滚，并原样返回该错误
	ReplaceSelections(ctx context.Context, userID int64, window domain.DateRange, selections []*domain.Selection, check domain.SelectionCheck) error
	ListSelectionsWithMenu(ctx context.Context, userID int64, r domain.DateRange) ([]*domain.SelectionWithMenu, error)
	ListUsersWithoutSelection(ctx context.Context, r domain.DateRange) ([]*domain.EmployeeIdentity, error)
	GetSelectionStats(ctx context.Context, r domain.DateRange) ([]*domain.SelectionStat, error)
}

type RegistrationStore interface {
	// CreateRegistration 在同一个事务内锁定菜单并调用 check，然后做重复检查并插入；
	// 重复登记（包括唯一约束冲突）返回 domain.ErrAlreadyRegistered
	CreateRegistration(ctx context.Context, reg *domain.Registration, check domain.MenuCheck) error
	ListRegistrations(ctx context.Context, filter domain.RegistrationFilter) ([]*domain.RegistrationDetail, error)
	GetRegistrationStats(ctx context.Context, r domain.DateRange) ([]*domain.RegistrationStat, error)
}

// TokenVerifier 把扫码得到的不透明令牌解析为员工身份
type TokenVerifier interface {
	Resolve(ctx context.Context, token string) (*domain.EmployeeIdentity, error)
}

type MailPublisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// ReminderGuard 保证同一个 key 在 ttl 内只能被获取一次
type ReminderGuard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
