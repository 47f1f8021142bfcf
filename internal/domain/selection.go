package domain

import "time"

type DishChoice string

const (
	DishChoiceMain        DishChoice = "main"
	DishChoiceAlternative DishChoice = "alternative"
)

func (c DishChoice) Valid() bool {
	return c == DishChoiceMain || c == DishChoiceAlternative
}

type SelectionInput struct {
	MenuItemID          int64      `json:"menuItemID"`
	ChosenDish          DishChoice `json:"chosenDish"`
	SpecialRequirements *string    `json:"specialRequirements"`
}

type Selection struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"userID"`
	MenuItemID          int64      `json:"menuItemID"`
	ChosenDish          DishChoice `json:"chosenDish"`
	SpecialRequirements *string    `json:"specialRequirements"`
	CreatedAt           time.Time  `json:"createdAt"`
}

type SelectionWithMenu struct {
	Selection
	Menu MenuItem `json:"menu"`
}

// SelectionCheck 在替换事务内逐条校验选餐，menu 为 nil 表示菜单不存在
type SelectionCheck func(menu *MenuItem, selection *Selection) error

type SelectionStat struct {
	Date                 time.Time `json:"date"`
	MealSlot             MealSlot  `json:"mealSlot"`
	TotalSelections      int64     `json:"totalSelections"`
	MainDishCount        int64     `json:"mainDishCount"`
	AlternativeDishCount int64     `json:"alternativeDishCount"`
	UniqueUsers          int64     `json:"uniqueUsers"`
}
