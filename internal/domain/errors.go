package domain

import "errors"

var (
	ErrNotFound           = errors.New("не найдено")
	ErrForbidden          = errors.New("доступ запрещен")
	ErrAlreadyExists      = errors.New("уже существует")
	ErrInvalidInput       = errors.New("неверные данные")
	ErrInvalidCredentials = errors.New("неверный email или пароль")
	ErrInactiveUser       = errors.New("аккаунт деактивирован")
	ErrInvalidToken       = errors.New("недействительный токен")

	ErrTerminalState     = errors.New("запись уже завершена или отменена")
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	ErrCompleteInFuture  = errors.New("нельзя завершить запись, время которой еще не наступило")
	ErrTimeInPast        = errors.New("время записи должно быть в будущем")
	ErrSlotUnavailable   = errors.New("выбранное время недоступно")
)
