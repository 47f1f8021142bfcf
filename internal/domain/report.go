package domain

import "time"

// SlotReport 把某个已发布菜单的预选情况和实际就餐情况放在一起
type SlotReport struct {
	Date            time.Time `json:"date"`
	MealSlot        MealSlot  `json:"mealSlot"`
	MenuItemID      int64     `json:"menuItemID"`
	MainDish        string    `json:"mainDish"`
	AlternativeDish *string   `json:"alternativeDish"`

	PlannedTotal       int64 `json:"plannedTotal"`
	PlannedMain        int64 `json:"plannedMain"`
	PlannedAlternative int64 `json:"plannedAlternative"`
	PlannedUsers       int64 `json:"plannedUsers"`

	Registered            int64 `json:"registered"`
	RegisteredAlternative int64 `json:"registeredAlternative"`
	SpecialRequirements   int64 `json:"specialRequirements"`
	WalkIns               int64 `json:"walkIns"`
}

type DailyReport struct {
	Date                  time.Time     `json:"date"`
	Slots                 []*SlotReport `json:"slots"`
	UsersWithoutSelection int           `json:"usersWithoutSelection"`
	UpcomingWeek          DateRange     `json:"upcomingWeek"`
}
