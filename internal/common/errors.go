// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях игры.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять игроку понятные сообщения.
package common

import "errors"

// Ошибки сделок
var (
	// ErrRateLimitExceeded — между парой игроков уже 5 сделок
	ErrRateLimitExceeded = errors.New("лимит сделок с этим игроком исчерпан")
	// ErrInsufficientFunds — на счёте нет монет для сделки или покупки
	ErrInsufficientFunds = errors.New("недостаточно монет на счёте")
	// ErrCounterpartUnavailable — второй игрок давно не появлялся в игре
	ErrCounterpartUnavailable = errors.New("игрок сейчас недоступен")
	// ErrDealAlreadyActive — у инициатора уже есть незавершённая сделка
	ErrDealAlreadyActive = errors.New("у вас уже есть активная сделка")
	// ErrDealAlreadyResolved — сделка уже завершена, повторно не применяется
	ErrDealAlreadyResolved = errors.New("сделка уже завершена")
	// ErrDealNotFound — сделка не найдена
	ErrDealNotFound = errors.New("сделка не найдена")
	// ErrNotYourDeal — отвечать на сделку может только её получатель
	ErrNotYourDeal = errors.New("эта сделка адресована не вам")
	// ErrAwaitTimeout — второй игрок не ответил за отведённое время
	ErrAwaitTimeout = errors.New("время ожидания ответа истекло")
)

// Ошибки игроков
var (
	// ErrPlayerNotFound — игрок не найден в базе
	ErrPlayerNotFound = errors.New("игрок не найден")
	// ErrCodeNotFound — код входа не существует
	ErrCodeNotFound = errors.New("такого кода нет, проверьте написание")
	// ErrCodeTaken — код уже привязан к другому Telegram-аккаунту
	ErrCodeTaken = errors.New("этот код уже занят другим игроком")
	// ErrNotLoggedIn — пользователь не вошёл по коду
	ErrNotLoggedIn = errors.New("сначала войдите: !код ВАШ_КОД")
	// ErrSelfDeal — сделка с самим собой запрещена
	ErrSelfDeal = errors.New("нельзя заключить сделку с самим собой")
)

// Ошибки магазина
var (
	// ErrProductNotFound — товар не найден или снят с продажи
	ErrProductNotFound = errors.New("товар не найден")
	// ErrOrderNotFound — заказ не найден
	ErrOrderNotFound = errors.New("заказ не найден")
	// ErrOrderNotPending — заказ уже подтверждён или отменён
	ErrOrderNotPending = errors.New("заказ уже обработан")
)

// Ошибки вкладов
var (
	// ErrInvalidDepositType — неизвестный тип вклада
	ErrInvalidDepositType = errors.New("тип вклада: надежный или рискованный")
	// ErrDepositAlreadyResolved — вклад уже закрыт, прибыль не пересчитывается
	ErrDepositAlreadyResolved = errors.New("вклад уже закрыт")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)

// Общие ошибки
var (
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
)
