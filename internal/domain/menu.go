package domain

import (
	"slices"
	"time"
)

type MealSlot string

const (
	MealSlotBreakfast MealSlot = "breakfast"
	MealSlotLunch     MealSlot = "lunch"
	MealSlotSnack     MealSlot = "snack"
	MealSlotDinner    MealSlot = "dinner"
)

// MealSlots 按一天内的先后顺序排列
var MealSlots = []MealSlot{MealSlotBreakfast, MealSlotLunch, MealSlotSnack, MealSlotDinner}

func (s MealSlot) Valid() bool {
	return slices.Contains(MealSlots, s)
}

func (s MealSlot) Order() int {
	return slices.Index(MealSlots, s)
}

type MenuItem struct {
	ID              int64     `json:"id"`
	Date            time.Time `json:"date"`
	MealSlot        MealSlot  `json:"mealSlot"`
	MainDish        string    `json:"mainDish"`
	AlternativeDish *string   `json:"alternativeDish"`
	Dessert         *string   `json:"dessert"`
	SpecialDietTags []string  `json:"specialDietTags"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (m *MenuItem) HasAlternative() bool {
	return m.AlternativeDish != nil && *m.AlternativeDish != ""
}

func (m *MenuItem) IsOn(date time.Time) bool {
	return DateOf(m.Date).Equal(DateOf(date))
}

// WeeklyMenus 是某一周按日期和餐次分组的菜单
type WeeklyMenus struct {
	Week DateRange                         `json:"week"`
	Days map[string]map[MealSlot]*MenuItem `json:"days"`
}

// MenuCheck 在事务内对被引用的菜单做校验，menu 为 nil 表示菜单不存在
type MenuCheck func(menu *MenuItem) error

// GroupMenusByDate 按日期和餐次分组，日期键格式为 2006-01-02
func GroupMenusByDate(menus []*MenuItem) map[string]map[MealSlot]*MenuItem {
	grouped := make(map[string]map[MealSlot]*MenuItem)
	for _, menu := range menus {
		key := menu.Date.Format(DateLayout)
		if _, exists := grouped[key]; !exists {
			grouped[key] = make(map[MealSlot]*MenuItem)
		}
		grouped[key][menu.MealSlot] = menu
	}
	return grouped
}
