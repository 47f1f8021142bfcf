package domain

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidInput          Code = "INVALID_INPUT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeOutsideWindow         Code = "OUTSIDE_WINDOW"
	CodeInvalidMenuReference  Code = "INVALID_MENU_REFERENCE"
	CodeMenuNotToday          Code = "MENU_NOT_TODAY"
	CodeInvalidMenuOrNotToday Code = "INVALID_MENU_OR_NOT_TODAY"
	CodeAlreadyRegistered     Code = "ALREADY_REGISTERED"
	CodeInvalidToken          Code = "INVALID_TOKEN"
	CodeReminderAlreadySent   Code = "REMINDER_ALREADY_SENT"
)

const ReasonAlternativeNotAvailable = "ALTERNATIVE_NOT_AVAILABLE"

// Rejection 表示业务规则拒绝了请求，是预期内的结果而不是故障
type Rejection struct {
	Code       Code   `json:"code"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message"`
	MenuItemID int64  `json:"menuItemID,omitempty"`
}

func (e *Rejection) Error() string {
	if e.MenuItemID != 0 {
		return fmt.Sprintf("%s: %s (menu %d)", e.Code, e.Message, e.MenuItemID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is 只比较 Code，目标设置了 Reason 时还要求 Reason 一致
func (e *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrInvalidInput            = &Rejection{Code: CodeInvalidInput, Message: "请求参数不合法"}
	ErrNotFound                = &Rejection{Code: CodeNotFound, Message: "记录不存在"}
	ErrMenuNotFound            = &Rejection{Code: CodeNotFound, Message: "菜单不存在"}
	ErrOutsideWindow           = &Rejection{Code: CodeOutsideWindow, Message: "每周选餐只能在周日提交"}
	ErrInvalidMenuReference    = &Rejection{Code: CodeInvalidMenuReference, Message: "菜单不存在或不在本次选餐范围内"}
	ErrAlternativeNotAvailable = &Rejection{Code: CodeInvalidMenuReference, Reason: ReasonAlternativeNotAvailable, Message: "该菜单没有备选菜品"}
	ErrMenuNotToday            = &Rejection{Code: CodeMenuNotToday, Message: "该菜单不是今天的菜单"}
	ErrInvalidMenuOrNotToday   = &Rejection{Code: CodeInvalidMenuOrNotToday, Message: "菜单无效或不是今天的菜单"}
	ErrAlreadyRegistered       = &Rejection{Code: CodeAlreadyRegistered, Message: "今天该餐次已经登记过了"}
	ErrInvalidToken            = &Rejection{Code: CodeInvalidToken, Message: "无效的二维码"}
	ErrReminderAlreadySent     = &Rejection{Code: CodeReminderAlreadySent, Message: "今天已经发送过选餐提醒"}
)

// ErrStorageFailure 包裹所有无法归类的存储层错误，细节只进日志不返回给调用方
var ErrStorageFailure = errors.New("storage failure")

func InvalidInput(msg string) *Rejection {
	return &Rejection{Code: CodeInvalidInput, Message: msg}
}

func InvalidMenuReference(menuItemID int64) *Rejection {
	return &Rejection{
		Code:       CodeInvalidMenuReference,
		Message:    fmt.Sprintf("菜单 %d 不存在或不在本次选餐范围内", menuItemID),
		MenuItemID: menuItemID,
	}
}

func AlternativeNotAvailable(menuItemID int64) *Rejection {
	return &Rejection{
		Code:       CodeInvalidMenuReference,
		Reason:     ReasonAlternativeNotAvailable,
		Message:    fmt.Sprintf("菜单 %d 没有备选菜品", menuItemID),
		MenuItemID: menuItemID,
	}
}

// AsRejection 在错误链中查找业务拒绝
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// StorageFailure 保留业务拒绝原样返回，其余错误统一包裹为存储故障
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsRejection(err); ok {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, err)
}
