package rest

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

const maxPhotoSize = 5 << 20

type availableSlotsResponse struct {
	DoctorID string      `json:"doctor_id"`
	Date     string      `json:"date"`
	Slots    []time.Time `json:"slots"`
}

type photoResponse struct {
	ProfileImageURL string `json:"profile_image_url"`
}

// @Summary Список врачей
// @Tags Врачи
// @Produce json
// @Param specialization query string false "Специализация"
// @Param search query string false "Поиск по имени"
// @Param limit query int false "Лимит (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Врачи"
// @Router /doctors [get]
func (h *Handler) getDoctors(c *gin.Context) {
	limit, offset, page := pagination(c)

	active := true
	filter := domain.DoctorFilter{IsActive: &active, Limit: limit, Offset: offset}
	if spec := c.Query("specialization"); spec != "" {
		filter.Specialization = &spec
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if all, _ := strconv.ParseBool(c.Query("include_inactive")); all {
		filter.IsActive = nil
	}

	doctors, total, err := h.services.Doctor.List(c.Request.Context(), filter)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения списка врачей")
		return
	}

	paginatedSuccessResponse(c, doctors, total, page, limit)
}

// @Summary Список специализаций
// @Tags Врачи
// @Produce json
// @Success 200 {array} string "Специализации"
// @Router /doctors/specializations [get]
func (h *Handler) getSpecializations(c *gin.Context) {
	specs, err := h.services.Doctor.Specializations(c.Request.Context())
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения специализаций")
		return
	}

	successResponse(c, http.StatusOK, specs)
}

// @Summary Врач по ID
// @Tags Врачи
// @Produce json
// @Param id path string true "ID врача"
// @Success 200 {object} domain.Doctor "Врач с расписанием"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id} [get]
func (h *Handler) getDoctorByID(c *gin.Context) {
	doctor, err := h.services.Doctor.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения врача")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Расписание врача
// @Tags Врачи
// @Produce json
// @Param id path string true "ID врача"
// @Success 200 {array} domain.Schedule "Недельное расписание"
// @Router /doctors/{id}/schedules [get]
func (h *Handler) getDoctorSchedules(c *gin.Context) {
	schedules, err := h.services.Schedule.ListByDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения расписания")
		return
	}

	successResponse(c, http.StatusOK, schedules)
}

// @Summary Свободные слоты врача на дату
// @Tags Врачи
// @Produce json
// @Param id path string true "ID врача"
// @Param date query string true "Дата в формате ГГГГ-ММ-ДД"
// @Success 200 {object} availableSlotsResponse "Свободные слоты"
// @Failure 400 {object} errorResponseBody "Неверная дата"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id}/available-slots [get]
func (h *Handler) getAvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		badRequestResponse(c, "не указана дата")
		return
	}

	slots, err := h.services.Schedule.AvailableSlots(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения свободных слотов")
		return
	}

	successResponse(c, http.StatusOK, availableSlotsResponse{
		DoctorID: c.Param("id"),
		Date:     date,
		Slots:    slots,
	})
}

// @Summary Добавить врача
// @Tags Врачи
// @Accept json
// @Produce json
// @Param input body domain.CreateDoctorDTO true "Данные врача"
// @Success 201 {object} domain.Doctor "Созданный врач"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /doctors [post]
func (h *Handler) createDoctor(c *gin.Context) {
	var input domain.CreateDoctorDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	doctor, err := h.services.Doctor.Create(c.Request.Context(), input)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка создания врача")
		return
	}

	createdResponse(c, doctor)
}

// @Summary Обновить врача
// @Tags Врачи
// @Accept json
// @Produce json
// @Param id path string true "ID врача"
// @Param input body domain.UpdateDoctorDTO true "Изменяемые поля"
// @Success 200 {object} domain.Doctor "Обновленный врач"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Security ApiKeyAuth
// @Router /doctors/{id} [put]
func (h *Handler) updateDoctor(c *gin.Context) {
	var input domain.UpdateDoctorDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	doctor, err := h.services.Doctor.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка обновления врача")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Удалить врача
// @Description Врач скрывается из каталога, существующие записи сохраняются
// @Tags Врачи
// @Param id path string true "ID врача"
// @Success 204 "Врач удален"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Security ApiKeyAuth
// @Router /doctors/{id} [delete]
func (h *Handler) deleteDoctor(c *gin.Context) {
	if err := h.services.Doctor.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.serviceErrorResponse(c, err, "ошибка удаления врача")
		return
	}

	noContentResponse(c)
}

// @Summary Загрузить фото врача
// @Tags Врачи
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "ID врача"
// @Param photo formData file true "Изображение до 5 МБ"
// @Success 200 {object} photoResponse "Ссылка на фото"
// @Failure 400 {object} errorResponseBody "Файл не является изображением"
// @Failure 413 {object} errorResponseBody "Файл слишком большой"
// @Failure 503 {object} errorResponseBody "Хранилище не настроено"
// @Security ApiKeyAuth
// @Router /doctors/{id}/photo [post]
func (h *Handler) uploadDoctorPhoto(c *gin.Context) {
	header, err := c.FormFile("photo")
	if err != nil {
		badRequestResponse(c, "файл не передан")
		return
	}
	if header.Size > maxPhotoSize {
		errorResponse(c, http.StatusRequestEntityTooLarge, "размер файла превышает 5 МБ")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.logger.Error("ошибка открытия файла", zap.Error(err))
		badRequestResponse(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoSize+1))
	if err != nil {
		h.logger.Error("ошибка чтения файла", zap.Error(err))
		badRequestResponse(c, "не удалось прочитать файл")
		return
	}
	if len(data) > maxPhotoSize {
		errorResponse(c, http.StatusRequestEntityTooLarge, "размер файла превышает 5 МБ")
		return
	}

	url, err := h.services.Doctor.UploadPhoto(c.Request.Context(), c.Param("id"), data, header.Filename)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка загрузки фото")
		return
	}

	successResponse(c, http.StatusOK, photoResponse{ProfileImageURL: url})
}

// @Summary Добавить интервал расписания
// @Tags Врачи
// @Accept json
// @Produce json
// @Param id path string true "ID врача"
// @Param input body domain.CreateScheduleDTO true "День недели и рабочие часы"
// @Success 201 {object} domain.Schedule "Созданный интервал"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 409 {object} errorResponseBody "Пересечение с существующим интервалом"
// @Security ApiKeyAuth
// @Router /doctors/{id}/schedules [post]
func (h *Handler) createSchedule(c *gin.Context) {
	var input domain.CreateScheduleDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	schedule, err := h.services.Schedule.Create(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка создания расписания")
		return
	}

	createdResponse(c, schedule)
}

// @Summary Удалить интервал расписания
// @Tags Врачи
// @Param scheduleId path string true "ID интервала"
// @Success 204 "Интервал удален"
// @Failure 404 {object} errorResponseBody "Интервал не найден"
// @Security ApiKeyAuth
// @Router /doctors/schedules/{scheduleId} [delete]
func (h *Handler) deleteSchedule(c *gin.Context) {
	if err := h.services.Schedule.Delete(c.Request.Context(), c.Param("scheduleId")); err != nil {
		h.serviceErrorResponse(c, err, "ошибка удаления расписания")
		return
	}

	noContentResponse(c)
}
