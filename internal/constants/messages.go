package constants

// User-facing messages surfaced by the session controller, the fetcher and the forms.
const (
	MsgPasswordMismatch = "Passwords do not match"
	MsgSessionExpired   = "Session expired. Please log in again."

	MsgLoginFailed     = "Login failed. Please check your credentials."
	MsgLoginNoToken    = "Login failed: No access token received."
	MsgLoginUnexpected = "An unexpected error occurred during login."

	MsgRegisterFailed           = "Registration failed. Please try again."
	MsgRegisterUnexpectedStatus = "Registration failed: Unexpected status."
	MsgRegisterUnexpected       = "An unexpected error occurred during registration."
	MsgRegisterSuccess          = "Registration successful. Please log in."

	MsgProfileFailedPrefix = "Failed to fetch user: "
	MsgProfileUnknown      = "An unknown error occurred while fetching user data."

	MsgHabitsFailed     = "Failed to fetch habits."
	MsgHabitsUnexpected = "An unexpected error occurred."

	MsgCreateHabitFailed     = "Failed to create habit. Please check your input."
	MsgCreateHabitUnexpected = "An unexpected error occurred during habit creation."

	MsgLogHabitFailed     = "Failed to update habit log."
	MsgLogHabitUnexpected = "An unexpected error occurred while updating the habit log."

	MsgDeleteHabitFailed     = "Failed to delete habit."
	MsgDeleteHabitUnexpected = "An unexpected error occurred while deleting the habit."

	MsgNameRequired        = "Name is required."
	MsgInvalidStrategyJSON = "Strategy Parameters must be valid JSON."
	MsgInvalidDate         = "Dates must use the YYYY-MM-DD format."
	MsgEndBeforeStart      = "End date cannot be before the start date."
	MsgInvalidStrategyType = "Strategy type must be daily or weekly."
	MsgInvalidDayOfWeek    = "day_of_week must be a whole number from 0 (Monday) to 6 (Sunday)."
	MsgDayOfWeekRequired   = "Weekly habits need a day_of_week in Strategy Parameters."
	MsgInvalidFrequency    = "frequency must be a whole number greater than 0."

	MsgTransportHint = "Is the server running? Check the server URL with 'habitual config show'."
)
