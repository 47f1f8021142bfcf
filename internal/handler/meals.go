package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/utils"
)

type mealRequest struct {
	MenuItemID int64           `json:"menuItemID" validate:"required,gt=0"`
	MealSlot   domain.MealSlot `json:"mealSlot" validate:"required"`
}

func (h *Handler) RegisterMeal(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req mealRequest
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	registration, err := h.services.Registrations.RegisterSelf(r.Context(), myInfo.ID, req.MenuItemID, req.MealSlot)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "用餐登记成功", registration)
}

func (h *Handler) VerifyQRCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRCode string `json:"qrCode" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	verification, err := h.services.Registrations.VerifyToken(r.Context(), req.QRCode)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "二维码有效", verification)
}

func (h *Handler) ScanAndRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRCode     string          `json:"qrCode" validate:"required"`
		MenuItemID int64           `json:"menuItemID" validate:"required,gt=0"`
		MealSlot   domain.MealSlot `json:"mealSlot" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.services.Registrations.VerifyAndRegister(r.Context(), req.QRCode, req.MenuItemID, req.MealSlot)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "扫码登记成功，"+result.DisplayName+" 用餐愉快", result)
}

func (h *Handler) GetDailyRegistrations(w http.ResponseWriter, r *http.Request) {
	date, err := utils.ParseDateParam(r.URL.Query(), "date")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	registrations, err := h.services.Registrations.GetDailyRegistrations(r.Context(), date)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取当日用餐登记成功", registrations)
}

func (h *Handler) GetWeeklyRegistrations(w http.ResponseWriter, r *http.Request) {
	dateRange, err := utils.ParseDateRangeParams(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	registrations, err := h.services.Registrations.GetWeeklyRegistrations(r.Context(), dateRange)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取每周用餐登记成功", registrations)
}

func (h *Handler) GetUserRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.rejectionResponse(w, r, domain.InvalidInput("用户ID无效"))
		return
	}

	dateRange, err := utils.ParseDateRangeParams(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	registrations, err := h.services.Registrations.GetUserRegistrations(r.Context(), userID, dateRange)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取员工用餐登记成功", registrations)
}

func (h *Handler) GetRegistrationStats(w http.ResponseWriter, r *http.Request) {
	dateRange, err := utils.ParseDateRangeParams(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	stats, err := h.services.Registrations.GetRegistrationStats(r.Context(), dateRange)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取用餐统计成功", stats)
}
