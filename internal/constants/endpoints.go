package constants

const (
	PathHealth          = "/health"
	PathToken           = "/auth/token"
	PathRegister        = "/auth/register"
	PathMe              = "/auth/me"
	PathHabits          = "/habits/"
	PathHabitLog        = "/habits/log"
	PathHabitFmt        = "/habits/%d"
	PathDatesWithStatus = "/habits/%d/dates-with-status"

	HeaderRequestID = "X-Request-ID"
)
