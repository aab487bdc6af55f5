package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

// @Summary Текущий пользователь
// @Tags Пользователи
// @Produce json
// @Success 200 {object} domain.User "Данные пользователя"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Security ApiKeyAuth
// @Router /users/me [get]
func (h *Handler) getCurrentUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	user, err := h.services.User.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения пользователя")
		return
	}

	successResponse(c, http.StatusOK, user)
}

// @Summary Обновить свой профиль
// @Tags Пользователи
// @Accept json
// @Produce json
// @Param input body domain.UpdateProfileDTO true "Имя и телефон"
// @Success 200 {object} domain.User "Обновленный профиль"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Security ApiKeyAuth
// @Router /users/me [put]
func (h *Handler) updateCurrentUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.UpdateProfileDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	user, err := h.services.User.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка обновления профиля")
		return
	}

	successResponse(c, http.StatusOK, user)
}

// @Summary Список пользователей
// @Description Доступно только администратору
// @Tags Пользователи
// @Produce json
// @Param role query string false "Роль (PATIENT, DOCTOR, ADMIN)"
// @Param search query string false "Поиск по имени или email"
// @Param limit query int false "Лимит (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Пользователи"
// @Failure 403 {object} errorResponseBody "Доступ запрещен"
// @Security ApiKeyAuth
// @Router /users [get]
func (h *Handler) getUsers(c *gin.Context) {
	limit, offset, page := pagination(c)
	filter := domain.UserFilter{Limit: limit, Offset: offset}

	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.UserRole(roleStr)
		if !role.IsValid() {
			badRequestResponse(c, "неизвестная роль")
			return
		}
		filter.Role = &role
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}

	users, total, err := h.services.User.List(c.Request.Context(), filter)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка получения списка пользователей")
		return
	}

	paginatedSuccessResponse(c, users, total, page, limit)
}

// @Summary Обновить пользователя
// @Description Доступно только администратору. Деактивация завершает все сессии пользователя
// @Tags Пользователи
// @Accept json
// @Produce json
// @Param id path string true "ID пользователя"
// @Param input body domain.UpdateUserDTO true "Изменяемые поля"
// @Success 200 {object} domain.User "Обновленный пользователь"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Failure 404 {object} errorResponseBody "Пользователь не найден"
// @Security ApiKeyAuth
// @Router /users/{id} [put]
func (h *Handler) updateUser(c *gin.Context) {
	var input domain.UpdateUserDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Warn("неверный формат данных", zap.Error(err))
		badRequestResponse(c, "неверный формат данных")
		return
	}

	user, err := h.services.User.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.serviceErrorResponse(c, err, "ошибка обновления пользователя")
		return
	}

	successResponse(c, http.StatusOK, user)
}

// @Summary Деактивировать пользователя
// @Tags Пользователи
// @Param id path string true "ID пользователя"
// @Success 204 "Пользователь деактивирован"
// @Failure 403 {object} errorResponseBody "Нельзя деактивировать себя"
// @Failure 404 {object} errorResponseBody "Пользователь не найден"
// @Security ApiKeyAuth
// @Router /users/{id} [delete]
func (h *Handler) deleteUser(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	if err := h.services.User.Deactivate(c.Request.Context(), actorID, c.Param("id")); err != nil {
		h.serviceErrorResponse(c, err, "ошибка деактивации пользователя")
		return
	}

	noContentResponse(c)
}
