package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

const menuColumns = `m.id, m.menu_date, m.meal_slot, m.main_dish, m.alternative_dish, m.dessert, m.special_diet_tags, m.created_at`

// menuRow 承接菜单的扫描结果，special_diet_tags 以 JSONB 存储
type menuRow struct {
	menu domain.MenuItem
	tags []byte
}

func (row *menuRow) dst() []any {
	m := &row.menu
	return []any{&m.ID, &m.Date, &m.MealSlot, &m.MainDish, &m.AlternativeDish, &m.Dessert, &row.tags, &m.CreatedAt}
}

func (row *menuRow) item() (*domain.MenuItem, error) {
	menu := row.menu
	menu.Date = domain.DateOf(menu.Date)
	if len(row.tags) > 0 {
		if err := json.Unmarshal(row.tags, &menu.SpecialDietTags); err != nil {
			return nil, fmt.Errorf("decode special diet tags of menu %d: %w", menu.ID, err)
		}
	}
	return &menu, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenu(s rowScanner) (*domain.MenuItem, error) {
	row := &menuRow{}
	if err := s.Scan(row.dst()...); err != nil {
		return nil, err
	}
	return row.item()
}

func (r *Repository) GetMenuItemByID(ctx context.Context, id int64) (*domain.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items m WHERE m.id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	menu, err := scanMenu(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}

	return menu, nil
}

func (r *Repository) ListMenuItemsByDateRange(ctx context.Context, dr domain.DateRange) ([]*domain.MenuItem, error) {
	query := `
		SELECT ` + menuColumns + `
		FROM menu_items m
		WHERE m.menu_date BETWEEN $1 AND $2
		ORDER BY m.menu_date, ` + fmt.Sprintf(slotOrder, "m.meal_slot")

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, dr.Start, dr.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	menus := make([]*domain.MenuItem, 0)
	for rows.Next() {
		menu, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		menus = append(menus, menu)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return menus, nil
}

func (r *Repository) MenuItemExistsForDateAndSlot(ctx context.Context, date time.Time, slot domain.MealSlot) (bool, error) {
	isExists := false

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `SELECT EXISTS (SELECT 1 FROM menu_items WHERE menu_date = $1 AND meal_slot = $2)`
	if err := r.dbpool.QueryRowContext(ctx, query, domain.DateOf(date), slot).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}

// CreateMenuItem 只供导入和生成测试数据使用，日期和餐次重复时返回唯一约束错误
func (r *Repository) CreateMenuItem(ctx context.Context, menu *domain.MenuItem) error {
	var tags any
	if len(menu.SpecialDietTags) > 0 {
		encoded, err := json.Marshal(menu.SpecialDietTags)
		if err != nil {
			return err
		}
		tags = string(encoded)
	}

	query := `
		INSERT INTO menu_items (menu_date, meal_slot, main_dish, alternative_dish, dessert, special_diet_tags)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	menu.Date = domain.DateOf(menu.Date)
	args := []any{menu.Date, menu.MealSlot, menu.MainDish, menu.AlternativeDish, menu.Dessert, tags}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&menu.ID, &menu.CreatedAt); err != nil {
		return err
	}

	return nil
}

// lockMenuItem 在事务内以共享锁读取菜单，防止校验之后菜单被修改或删除；不存在时返回 nil
func lockMenuItem(ctx context.Context, tx *sql.Tx, id int64) (*domain.MenuItem, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items m WHERE m.id = $1 FOR SHARE`

	menu, err := scanMenu(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return menu, nil
}
