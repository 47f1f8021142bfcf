package repository

import (
	"context"
	"fmt"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

const registrationsUserMealKey = "registrations_user_meal_key"

// CreateRegistration 校验、查重和插入在同一个事务内完成，唯一约束是最终的裁决者
func (r *Repository) CreateRegistration(ctx context.Context, reg *domain.Registration, check domain.MenuCheck) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	menu, err := lockMenuItem(ctx, tx, reg.MenuItemID)
	if err != nil {
		return err
	}
	if err := check(menu); err != nil {
		return err
	}

	isExists := false
	query := `
		SELECT EXISTS (
			SELECT 1 FROM registrations WHERE user_id = $1 AND meal_date = $2 AND meal_slot = $3
		)
	`
	if err := tx.QueryRowContext(ctx, query, reg.UserID, reg.MealDate, reg.MealSlot).Scan(&isExists); err != nil {
		return err
	}
	if isExists {
		return domain.ErrAlreadyRegistered
	}

	query = `
		INSERT INTO registrations (user_id, menu_item_id, meal_date, meal_slot, registered_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	args := []any{reg.UserID, reg.MenuItemID, reg.MealDate, reg.MealSlot, reg.RegisteredAt}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&reg.ID); err != nil {
		// 并发的两次登记都可能通过上面的检查，此时由唯一约束兜底
		if uniqueViolation(err) == registrationsUserMealKey {
			return domain.ErrAlreadyRegistered
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if uniqueViolation(err) == registrationsUserMealKey {
			return domain.ErrAlreadyRegistered
		}
		return err
	}

	return nil
}

func (r *Repository) ListRegistrations(ctx context.Context, filter domain.RegistrationFilter) ([]*domain.RegistrationDetail, error) {
	query := `
		SELECT
			r.id,
			r.user_id,
			r.menu_item_id,
			r.meal_date,
			r.meal_slot,
			r.registered_at,
			u.username,
			u.full_name,
			m.main_dish,
			m.alternative_dish,
			s.chosen_dish,
			s.special_requirements
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		JOIN menu_items m ON m.id = r.menu_item_id
		LEFT JOIN selections s ON s.user_id = r.user_id AND s.menu_item_id = r.menu_item_id
		WHERE r.meal_date BETWEEN $1 AND $2 AND ($3::bigint = 0 OR r.user_id = $3::bigint)
		ORDER BY r.registered_at DESC, r.id DESC
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, filter.Range.Start, filter.Range.End, filter.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]*domain.RegistrationDetail, 0)
	for rows.Next() {
		detail := &domain.RegistrationDetail{}
		dst := []any{
			&detail.ID, &detail.UserID, &detail.MenuItemID, &detail.MealDate, &detail.MealSlot, &detail.RegisteredAt,
			&detail.Username, &detail.FullName, &detail.MainDish, &detail.AlternativeDish,
			&detail.SelectedDish, &detail.SpecialRequirements,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		detail.MealDate = domain.DateOf(detail.MealDate)
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return details, nil
}

// GetRegistrationStats 以菜单为主表，登记左连接到对应的预选记录；没有预选的登记计为临时就餐
func (r *Repository) GetRegistrationStats(ctx context.Context, dr domain.DateRange) ([]*domain.RegistrationStat, error) {
	query := `
		SELECT
			m.menu_date,
			m.meal_slot,
			COUNT(r.id),
			COUNT(r.id) FILTER (WHERE s.chosen_dish = 'alternative'),
			COUNT(r.id) FILTER (WHERE s.special_requirements IS NOT NULL),
			COUNT(r.id) FILTER (WHERE s.id IS NULL)
		FROM menu_items m
		LEFT JOIN registrations r ON r.menu_item_id = m.id
		LEFT JOIN selections s ON s.user_id = r.user_id AND s.menu_item_id = r.menu_item_id
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

	stats := make([]*domain.RegistrationStat, 0)
	for rows.Next() {
		stat := &domain.RegistrationStat{}
		dst := []any{&stat.Date, &stat.MealSlot, &stat.TotalRegistrations, &stat.AlternativeSelections, &stat.SpecialRequirementsCount, &stat.WalkInCount}
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
