package showtimes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Movie struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title       string      `json:"title" gorm:"not null;size:255"`
	Genre       string      `json:"genre" gorm:"size:100"`
	DurationMin int         `json:"duration_min" gorm:"not null;check:duration_min > 0"`
	Rating      string      `json:"rating" gorm:"size:10"`
	Description string      `json:"description" gorm:"type:text"`
	Status      MovieStatus `json:"status" gorm:"type:varchar(20);default:'showing'"`
	PosterURL   string      `json:"poster_url" gorm:"size:500"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

type Cinema struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:255"`
	City      string    `json:"city" gorm:"not null;size:100;index"`
	Address   string    `json:"address" gorm:"size:500"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type Hall struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	CinemaID    uuid.UUID `json:"cinema_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null;size:100"`
	Rows        int       `json:"rows" gorm:"not null;check:rows > 0"`
	SeatsPerRow int       `json:"seats_per_row" gorm:"not null;check:seats_per_row > 0"`

	Cinema *Cinema `json:"-" gorm:"foreignKey:CinemaID"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type Showtime struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	MovieID   uuid.UUID       `json:"movie_id" gorm:"type:uuid;not null;index"`
	HallID    uuid.UUID       `json:"hall_id" gorm:"type:uuid;not null;index"`
	StartsAt  time.Time       `json:"starts_at" gorm:"not null;index"`
	Status    ShowtimeStatus  `json:"status" gorm:"type:varchar(20);default:'scheduled'"`
	BasePrice decimal.Decimal `json:"base_price" gorm:"type:numeric(10,2);not null"`

	Movie *Movie `json:"-" gorm:"foreignKey:MovieID"`
	Hall  *Hall  `json:"-" gorm:"foreignKey:HallID"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ShowtimeSeat is the authoritative seat metadata for one showtime. The
// booking flow resolves requested seat ids against these rows for price and
// type; the live held/booked state lives in the Redis engine, not here.
type ShowtimeSeat struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ShowtimeID uuid.UUID       `json:"showtime_id" gorm:"type:uuid;not null;uniqueIndex:uq_showtime_seats_showtime_seat,priority:1"`
	SeatID     string          `json:"seat_id" gorm:"not null;size:8;uniqueIndex:uq_showtime_seats_showtime_seat,priority:2"`
	SeatType   SeatType        `json:"seat_type" gorm:"type:varchar(20);not null;default:'standard'"`
	Price      decimal.Decimal `json:"price" gorm:"type:numeric(10,2);not null"`
	CreatedAt  time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

type MovieResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre"`
	DurationMin int       `json:"duration_min"`
	Rating      string    `json:"rating"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	PosterURL   string    `json:"poster_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type ShowtimeResponse struct {
	ID         string          `json:"id"`
	MovieID    string          `json:"movie_id"`
	MovieTitle string          `json:"movie_title,omitempty"`
	CinemaName string          `json:"cinema_name,omitempty"`
	City       string          `json:"city,omitempty"`
	HallName   string          `json:"hall_name,omitempty"`
	StartsAt   time.Time       `json:"starts_at"`
	Status     ShowtimeStatus  `json:"status"`
	BasePrice  decimal.Decimal `json:"base_price"`
	TotalSeats int             `json:"total_seats"`
}

// SeatInfo is the resolved (seat_id, seat_type, price) triple the booking
// flow prices a hold with.
type SeatInfo struct {
	SeatID   string          `json:"seat_id"`
	SeatType string          `json:"seat_type"`
	Price    decimal.Decimal `json:"price"`
}

type ShowtimeListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	MovieID  string `form:"movie_id" binding:"omitempty,uuid"`
	CinemaID string `form:"cinema_id" binding:"omitempty,uuid"`
	City     string `form:"city"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
	Status   string `form:"status" binding:"omitempty,oneof=scheduled cancelled finished"`
}

type MovieListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search"`
	Status string `form:"status" binding:"omitempty,oneof=showing coming_soon archived"`
}

type PaginatedShowtimes struct {
	Showtimes  []ShowtimeResponse `json:"showtimes"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

type PaginatedMovies struct {
	Movies     []MovieResponse `json:"movies"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

func (m *Movie) ToResponse() MovieResponse {
	return MovieResponse{
		ID:          m.ID.String(),
		Title:       m.Title,
		Genre:       m.Genre,
		DurationMin: m.DurationMin,
		Rating:      m.Rating,
		Description: m.Description,
		Status:      string(m.Status),
		PosterURL:   m.PosterURL,
		CreatedAt:   m.CreatedAt,
	}
}

// ToResponse flattens the preloaded movie/hall/cinema chain. Associations
// that were not preloaded stay empty rather than triggering extra queries.
func (s *Showtime) ToResponse() ShowtimeResponse {
	resp := ShowtimeResponse{
		ID:        s.ID.String(),
		MovieID:   s.MovieID.String(),
		StartsAt:  s.StartsAt,
		Status:    s.Status,
		BasePrice: s.BasePrice,
	}

	if s.Movie != nil {
		resp.MovieTitle = s.Movie.Title
	}
	if s.Hall != nil {
		resp.HallName = s.Hall.Name
		resp.TotalSeats = s.Hall.Rows * s.Hall.SeatsPerRow
		if s.Hall.Cinema != nil {
			resp.CinemaName = s.Hall.Cinema.Name
			resp.City = s.Hall.Cinema.City
		}
	}

	return resp
}

// TableName specifies the table name for GORM
func (Movie) TableName() string {
	return "movies"
}

func (Cinema) TableName() string {
	return "cinemas"
}

func (Hall) TableName() string {
	return "halls"
}

func (Showtime) TableName() string {
	return "showtimes"
}

func (ShowtimeSeat) TableName() string {
	return "showtime_seats"
}
