package rest

import (
	"github.com/gin-gonic/gin"
)

// @Summary Все записи клиники
// @Description Доступно только администратору
// @Tags Администрирование
// @Produce json
// @Param status query string false "Статус"
// @Param doctor_id query string false "ID врача"
// @Param patient_id query string false "ID пациента"
// @Param date_from query string false "С даты (ГГГГ-ММ-ДД)"
// @Param date_to query string false "По дату (ГГГГ-ММ-ДД)"
// @Param limit query int false "Лимит (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Записи"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Security ApiKeyAuth
// @Router /admin/appointments [get]
func (h *Handler) getAllAppointments(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	filter, page, ok := appointmentFilter(c)
	if !ok {
		return
	}

	h.listAppointments(c, actor, filter, page)
}
