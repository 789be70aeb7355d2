package showtimes

type ShowtimeStatus string

const (
	ShowtimeStatusScheduled ShowtimeStatus = "scheduled"
	ShowtimeStatusCancelled ShowtimeStatus = "cancelled"
	ShowtimeStatusFinished  ShowtimeStatus = "finished"
)

func (s ShowtimeStatus) IsValid() bool {
	switch s {
	case ShowtimeStatusScheduled, ShowtimeStatusCancelled, ShowtimeStatusFinished:
		return true
	}
	return false
}

// CanBeBooked reports whether holds may be placed against the showtime.
// The start-time check is separate so callers can report it distinctly.
func (s ShowtimeStatus) CanBeBooked() bool {
	return s == ShowtimeStatusScheduled
}

type MovieStatus string

const (
	MovieStatusShowing    MovieStatus = "showing"
	MovieStatusComingSoon MovieStatus = "coming_soon"
	MovieStatusArchived   MovieStatus = "archived"
)

type SeatType string

const (
	SeatTypeStandard SeatType = "standard"
	SeatTypeVIP      SeatType = "vip"
	SeatTypeCouple   SeatType = "couple"
	SeatTypePremium  SeatType = "premium"
)
