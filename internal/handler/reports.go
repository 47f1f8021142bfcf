package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/utils"
)

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	dateRange, err := utils.ParseDateRangeParams(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	reports, err := h.services.Reports.GetReport(r.Context(), dateRange)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取报表成功", reports)
}

func (h *Handler) GetDailyReport(w http.ResponseWriter, r *http.Request) {
	date, err := utils.ParseDateParam(r.URL.Query(), "date")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	report, err := h.services.Reports.GetDailyReport(r.Context(), date)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取当日报表成功", report)
}
