package domain

import (
	"time"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	QRToken      string    `json:"qrToken"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// EmployeeIdentity 是扫码或列表场景下对外暴露的最小员工信息
type EmployeeIdentity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

func (u *User) Identity() *EmployeeIdentity {
	return &EmployeeIdentity{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// DisplayName 优先使用姓名，没有姓名时退回到用户名
func (e *EmployeeIdentity) DisplayName() string {
	if e.FullName != "" {
		return e.FullName
	}
	return e.Username
}
