package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/pkg/validator"
)

// @Summary Записаться к врачу
// @Description Создает запись в статусе SCHEDULED. Время должно быть в будущем, свободно и входить в расписание врача
// @Tags Записи
// @Accept json
// @Produce json
// @Param input body domain.CreateAppointmentDTO true "Врач, время и причина визита"
// @Success 201 {object} domain.Appointment "Созданная запись"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 409 {object} errorResponseBody "Время уже занято"
// @Failure 422 {object} errorResponseBody "Время в прошлом"
// @Security ApiKeyAuth
// @Router /appointments [post]
func (h *Handler) createAppointment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.CreateAppointmentDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	appointment, err := h.services.Appointment.Book(c.Request.Context(), actor, input)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка создания записи")
		return
	}

	createdResponse(c, appointment)
}

// @Summary Мои записи
// @Description Пациент видит только свои записи
// @Tags Записи
// @Produce json
// @Param status query string false "Статус"
// @Param date_from query string false "С даты (ГГГГ-ММ-ДД)"
// @Param date_to query string false "По дату (ГГГГ-ММ-ДД)"
// @Param limit query int false "Лимит (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Записи"
// @Security ApiKeyAuth
// @Router /appointments [get]
func (h *Handler) getAppointments(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	filter, page, ok := appointmentFilter(c)
	if !ok {
		return
	}
	// admins use /admin/appointments for the full list
	filter.PatientID = &actor.UserID
	filter.DoctorID = nil

	h.listAppointments(c, actor, filter, page)
}

// @Summary Запись по ID
// @Tags Записи
// @Produce json
// @Param id path string true "ID записи"
// @Success 200 {object} domain.Appointment "Запись"
// @Failure 403 {object} errorResponseBody "Чужая запись"
// @Failure 404 {object} errorResponseBody "Запись не найдена"
// @Security ApiKeyAuth
// @Router /appointments/{id} [get]
func (h *Handler) getAppointmentByID(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	appointment, err := h.services.Appointment.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения записи")
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

// @Summary Изменить причину визита или заметки
// @Tags Записи
// @Accept json
// @Produce json
// @Param id path string true "ID записи"
// @Param input body domain.UpdateAppointmentDTO true "Причина и заметки"
// @Success 200 {object} domain.Appointment "Обновленная запись"
// @Failure 409 {object} errorResponseBody "Запись завершена или отменена"
// @Security ApiKeyAuth
// @Router /appointments/{id} [put]
func (h *Handler) updateAppointment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.UpdateAppointmentDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	appointment, err := h.services.Appointment.Update(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка обновления записи")
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

// @Summary Отменить запись
// @Tags Записи
// @Produce json
// @Param id path string true "ID записи"
// @Success 200 {object} domain.Appointment "Запись в статусе CANCELLED"
// @Failure 403 {object} errorResponseBody "Чужая запись"
// @Failure 409 {object} errorResponseBody "Запись уже завершена или отменена"
// @Security ApiKeyAuth
// @Router /appointments/{id}/cancel [patch]
func (h *Handler) cancelAppointment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	appointment, err := h.services.Appointment.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка отмены записи")
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

// @Summary Перенести запись
// @Tags Записи
// @Accept json
// @Produce json
// @Param id path string true "ID записи"
// @Param input body domain.RescheduleAppointmentDTO true "Новое время"
// @Success 200 {object} domain.Appointment "Запись с новым временем"
// @Failure 409 {object} errorResponseBody "Время занято или запись завершена"
// @Failure 422 {object} errorResponseBody "Время в прошлом"
// @Security ApiKeyAuth
// @Router /appointments/{id}/reschedule [patch]
func (h *Handler) rescheduleAppointment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.RescheduleAppointmentDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	appointment, err := h.services.Appointment.Reschedule(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка переноса записи")
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

// @Summary Отметить запись завершенной
// @Description Доступно только администратору и только после наступления времени записи
// @Tags Записи
// @Produce json
// @Param id path string true "ID записи"
// @Success 200 {object} domain.Appointment "Запись в статусе COMPLETED"
// @Failure 409 {object} errorResponseBody "Запись уже завершена или отменена"
// @Failure 422 {object} errorResponseBody "Время записи еще не наступило"
// @Security ApiKeyAuth
// @Router /appointments/{id}/complete [patch]
func (h *Handler) completeAppointment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	appointment, err := h.services.Appointment.Complete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка завершения записи")
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

func (h *Handler) listAppointments(c *gin.Context, actor domain.Claims, filter domain.AppointmentFilter, page int) {
	appointments, total, err := h.services.Appointment.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения записей")
		return
	}

	paginatedSuccessResponse(c, appointments, total, page, filter.Limit)
}

// appointmentFilter reads the common list parameters. On a malformed value it
// writes the error response and returns ok == false.
func appointmentFilter(c *gin.Context) (filter domain.AppointmentFilter, page int, ok bool) {
	limit, offset, page := pagination(c)
	filter = domain.AppointmentFilter{Limit: limit, Offset: offset}

	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.AppointmentStatus(statusStr)
		if !status.IsValid() {
			badRequestResponse(c, "неизвестный статус записи")
			return filter, page, false
		}
		filter.Status = &status
	}

	if doctorID := c.Query("doctor_id"); doctorID != "" {
		filter.DoctorID = &doctorID
	}
	if patientID := c.Query("patient_id"); patientID != "" {
		filter.PatientID = &patientID
	}

	if from := c.Query("date_from"); from != "" {
		start, valid := validator.ParseDate(from, time.Local)
		if !valid {
			badRequestResponse(c, "дата должна быть в формате ГГГГ-ММ-ДД")
			return filter, page, false
		}
		filter.StartDate = &start
	}

	if to := c.Query("date_to"); to != "" {
		end, valid := validator.ParseDate(to, time.Local)
		if !valid {
			badRequestResponse(c, "дата должна быть в формате ГГГГ-ММ-ДД")
			return filter, page, false
		}
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.EndDate = &end
	}

	return filter, page, true
}
