// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с временем.
package common

import (
	"fmt"
	"math"
	"time"
)

// PluralizeCoins возвращает правильную форму слова «монета» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "монета" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "монеты" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "монет" (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	PluralizeCoins(1)  → "монета"
//	PluralizeCoins(3)  → "монеты"
//	PluralizeCoins(5)  → "монет"
//	PluralizeCoins(11) → "монет"
//	PluralizeCoins(21) → "монета"
func PluralizeCoins(n int64) string {
	// Берём абсолютное значение для отрицательных чисел
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	// Единственное число: 1, 21, 31, 101 (но НЕ 11, 111)
	if lastDigit == 1 && lastTwoDigits != 11 {
		return "монета"
	}

	// Малое множественное: 2-4, 22-24, 32-34 (но НЕ 12-14)
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "монеты"
	}

	// Большое множественное: 0, 5-20, 25-30, 100, ...
	return "монет"
}

// FormatCoins форматирует баланс в читабельную строку.
// Пример: FormatCoins(150) → "150 монет"
func FormatCoins(coins int64) string {
	return fmt.Sprintf("%d %s", coins, PluralizeCoins(coins))
}

// FormatDelta создаёт строку вида "+2 монеты" или "-1 монета".
// Знак «+» добавляется автоматически для неотрицательных значений.
func FormatDelta(delta int64) string {
	if delta >= 0 {
		return fmt.Sprintf("+%d %s", delta, PluralizeCoins(delta))
	}
	return fmt.Sprintf("%d %s", delta, PluralizeCoins(delta))
}

// PluralizeDeals возвращает правильную форму слова «сделка».
func PluralizeDeals(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "сделка"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "сделки"
	}
	return "сделок"
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (день.месяц.год часы:минуты).
// Используется для отображения дат транзакций и заказов.
func FormatDateTime(t time.Time) string {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// FormatDuration возвращает длительность в виде "1 ч 30 мин" или "45 мин".
// Используется для отображения срока вклада.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 && m > 0 {
		return fmt.Sprintf("%d ч %d мин", h, m)
	}
	if h > 0 {
		return fmt.Sprintf("%d ч", h)
	}
	return fmt.Sprintf("%d мин", m)
}
