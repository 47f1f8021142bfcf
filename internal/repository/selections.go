package repository

import (
	"context"
	"fmt"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

func (r *Repository) ReplaceSelections(ctx context.Context, userID int64, window domain.DateRange, selections []*domain.Selection, check domain.SelectionCheck) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 锁住员工记录，同一员工的并发提交在这里排队；FOR NO KEY UPDATE 不会阻塞其他表的外键检查
	var lockedID int64
	query := `SELECT id FROM users WHERE id = $1 FOR NO KEY UPDATE`
	if err := tx.QueryRowContext(ctx, query, userID).Scan(&lockedID); err != nil {
		return notFound(err)
	}

	// 先把窗口内原先的选餐删除再插入
	query = `
		DELETE FROM selections s
		USING menu_items m
		WHERE s.menu_item_id = m.id AND s.user_id = $1 AND m.menu_date BETWEEN $2 AND $3
	`
	if _, err := tx.ExecContext(ctx, query, userID, window.Start, window.End); err != nil {
		return err
	}

	for _, selection := range selections {
		menu, err := lockMenuItem(ctx, tx, selection.MenuItemID)
		if err != nil {
			return err
		}
		if err := check(menu, selection); err != nil {
			return err
		}

		query := `
			INSERT INTO selections (user_id, menu_item_id, chosen_dish, special_requirements)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, menu_item_id) DO UPDATE
			SET chosen_dish = EXCLUDED.chosen_dish,
				special_requirements = EXCLUDED.special_requirements,
				created_at = NOW()
			RETURNING id, created_at
		`
		selection.UserID = userID
		args := []any{userID, selection.MenuItemID, selection.ChosenDish, selection.SpecialRequirements}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&selection.ID, &selection.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) ListSelectionsWithMenu(ctx context.Context, userID int64, dr domain.DateRange) ([]*domain.SelectionWithMenu, error) {
	query := `
		SELECT
			s.id,
			s.chosen_dish,
			s.special_requirements,
			s.created_at,
			` + menuColumns + `
		FROM selections s
		JOIN menu_items m ON m.id = s.menu_item_id
		WHERE s.user_id = $1 AND m.menu_date BETWEEN $2 AND $3
		ORDER BY m.menu_date, ` + fmt.Sprintf(slotOrder, "m.meal_slot")

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID, dr.Start, dr.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	selections := make([]*domain.SelectionWithMenu, 0)
	for rows.Next() {
		selection := &domain.SelectionWithMenu{}
		row := &menuRow{}

		dst := append([]any{&selection.ID, &selection.ChosenDish, &selection.SpecialRequirements, &selection.CreatedAt}, row.dst()...)
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		menu, err := row.item()
		if err != nil {
			return nil, err
		}
		selection.UserID = userID
		selection.MenuItemID = menu.ID
		selection.Menu = *menu
		selections = append(selections, selection)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return selections, nil
}

func (r *Repository) ListUsersWithoutSelection(ctx context.Context, dr domain.DateRange) ([]*domain.EmployeeIdentity, error) {
	query := `
		SELECT u.id, u.username, u.full_name, u.email, u.role
		FROM users u
		WHERE u.role = 'employee' AND u.is_active AND NOT EXISTS (
			SELECT 1
			FROM selections s
			JOIN menu_items m ON m.id = s.menu_item_id
			WHERE s.user_id = u.id AND m.menu_date BETWEEN $1 AND $2
		)
		ORDER BY u.id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, dr.Start, dr.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.EmployeeIdentity, 0)
	for rows.Next() {
		user := &domain.EmployeeIdentity{}
		if err := rows.Scan(&user.ID, &user.Username, &user.FullName, &user.Email, &user.Role); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

// GetSelectionStats 以菜单为主表左连接选餐，没有选餐的菜单也会得到一行零值
func (r *Repository) GetSelectionStats(ctx context.Context, dr domain.DateRange) ([]*domain.SelectionStat, error) {
	query := `
		SELECT
			m.menu_date,
			m.meal_slot,
			COUNT(s.id),
			COUNT(s.id) FILTER (WHERE s.chosen_dish = 'main'),
			COUNT(s.id) FILTER (WHERE s.chosen_dish = 'alternative'),
			COUNT(DISTINCT s.user_id)
		FROM menu_items m
		LEFT JOIN selections s ON s.menu_item_id = m.id
		WHERE m.menu_date BETWEEN $1 AND $2
		GROUP BY m.id, m.menu_date, m.meal_slot
		ORDER BY m.menu_date, ` + fmt.Sprintf(slotOrder, "m.meal_slot")

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, dr.Start, dr.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*domain.SelectionStat, 0)
	for rows.Next() {
		stat := &domain.SelectionStat{}
		dst := []any{&stat.Date, &stat.MealSlot, &stat.TotalSelections, &stat.MainDishCount, &stat.AlternativeDishCount, &stat.UniqueUsers}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		stat.Date = domain.DateOf(stat.Date)
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
