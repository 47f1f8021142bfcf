package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/utils"
)

func (h *Handler) SubmitWeeklySelections(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	// 逐条校验交给 service，周日窗口的判断优先于请求内容
	var req struct {
		Selections []domain.SelectionInput `json:"selections"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	selections, err := h.services.Selections.SubmitWeeklySelections(r.Context(), myInfo.ID, req.Selections)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "提交每周选餐成功", selections)
}

func (h *Handler) GetWeeklySelections(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	weekStart, err := utils.ParseDateParam(r.URL.Query(), "weekStart")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	selections, err := h.services.Selections.GetWeeklySelections(r.Context(), myInfo.ID, weekStart)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取每周选餐成功", selections)
}

func (h *Handler) GetAvailableMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := h.services.Selections.GetAvailableMenus(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取可选菜单成功", menus)
}

func (h *Handler) GetUsersWithoutSelection(w http.ResponseWriter, r *http.Request) {
	dateRange, err := utils.ParseDateRangeParams(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	users, err := h.services.Selections.GetUsersWithoutSelection(r.Context(), dateRange)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取未选餐员工成功", users)
}

func (h *Handler) GetSelectionStatistics(w http.ResponseWriter, r *http.Request) {
	dateRange, err := utils.ParseDateRangeParams(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	stats, err := h.services.Selections.GetSelectionStatistics(r.Context(), dateRange)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取选餐统计成功", stats)
}

func (h *Handler) SendSelectionReminders(w http.ResponseWriter, r *http.Request) {
	queued, err := h.services.Reminders.SendSelectionReminders(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "选餐提醒已加入发送队列", map[string]int{"queued": queued})
}
