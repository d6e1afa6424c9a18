// Package workday содержит функции расчёта дат истечения займов
// с учётом выходных дней.
package workday

import "time"

// AdjustExpiration сдвигает стартовую дату с выходного на ближайший понедельник
// (суббота +2 дня, воскресенье +1 день) и прибавляет days рабочих дней,
// пропуская субботы и воскресенья.
func AdjustExpiration(start time.Time, days int) time.Time {
	adjusted := start
	switch adjusted.Weekday() {
	case time.Saturday:
		adjusted = adjusted.AddDate(0, 0, 2)
	case time.Sunday:
		adjusted = adjusted.AddDate(0, 0, 1)
	}

	added := 0
	for added < days {
		adjusted = adjusted.AddDate(0, 0, 1)
		if wd := adjusted.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return adjusted
}

// EndOfDay приводит время к 23:59:59.999 той же даты.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999000000, t.Location())
}

// DaysSince возвращает количество полных суток между датами,
// сравнивая только календарные дни.
func DaysSince(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}

// SameDate сообщает, приходятся ли два момента на один календарный день.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
