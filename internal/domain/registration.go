package domain

import "time"

type Registration struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userID"`
	MenuItemID   int64     `json:"menuItemID"`
	MealDate     time.Time `json:"mealDate"`
	MealSlot     MealSlot  `json:"mealSlot"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// ScanResult 是扫码登记成功后在扫码台上展示的内容
type ScanResult struct {
	Registration *Registration `json:"registration"`
	Username     string        `json:"username"`
	DisplayName  string        `json:"displayName"`
}

type TokenVerification struct {
	Employee *EmployeeIdentity `json:"employee"`
	Menus    []*MenuItem       `json:"menus"`
}

// RegistrationDetail 是登记记录与员工、菜单以及（可能不存在的）预选记录的联结结果
type RegistrationDetail struct {
	Registration
	Username            string      `json:"username"`
	FullName            string      `json:"fullName"`
	MainDish            string      `json:"mainDish"`
	AlternativeDish     *string     `json:"alternativeDish"`
	SelectedDish        *DishChoice `json:"selectedDish"`
	SpecialRequirements *string     `json:"specialRequirements"`
}

// RegistrationFilter 中 UserID 为 0 表示不按员工过滤
type RegistrationFilter struct {
	UserID int64
	Range  DateRange
}

type RegistrationStat struct {
	Date                     time.Time `json:"date"`
	MealSlot                 MealSlot  `json:"mealSlot"`
	TotalRegistrations       int64     `json:"totalRegistrations"`
	AlternativeSelections    int64     `json:"alternativeSelections"`
	SpecialRequirementsCount int64     `json:"specialRequirementsCount"`
	WalkInCount              int64     `json:"walkInCount"`
}
