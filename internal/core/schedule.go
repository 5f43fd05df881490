package core

import "time"

// DaysUntilDue returns the number of days from today until the nearest
// upcoming occurrence of the statement due day. When the due day has already
// passed this month, the due date rolls into the next month.
func DaysUntilDue(today time.Time, dueDay int) int {
	day := today.Day()
	if dueDay >= day {
		return dueDay - day
	}
	return (DaysInMonth(today) - day) + dueDay
}

// DaysInMonth returns the number of days in t's calendar month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
