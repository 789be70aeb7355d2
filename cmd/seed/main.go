package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"cinebook/internal/seats"
	"cinebook/internal/shared/config"
	"cinebook/internal/shared/database"
	"cinebook/internal/showtimes"
	"cinebook/internal/users"
	"cinebook/pkg/cache"
)

type Seeder struct {
	db     *database.DB
	engine *seats.Engine
}

func main() {
	fmt.Println("🌱 Starting CineBook Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// The engine writes the live seat state each showtime starts with.
	executor := cache.NewScriptExecutor(db.Redis)
	seats.RegisterScripts(executor)
	engine := seats.NewEngine(db.Redis, executor)

	seeder := &Seeder{db: db, engine: engine}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Order matters due to foreign key constraints
	// Delete in reverse dependency order
	tables := []string{
		"idempotency_keys",
		"payments",
		"booking_seats",
		"bookings",
		"showtime_seats",
		"showtimes",
		"halls",
		"cinemas",
		"movies",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	// Seed users first (no dependencies)
	if _, err := s.SeedUsers(); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	// Seed movies (no dependencies)
	movieIDs, err := s.SeedMovies()
	if err != nil {
		return fmt.Errorf("failed to seed movies: %w", err)
	}

	// Seed cinemas with halls
	halls, err := s.SeedCinemas()
	if err != nil {
		return fmt.Errorf("failed to seed cinemas: %w", err)
	}

	// Clear Redis so the engine state matches the fresh catalog
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	// Seed showtimes, their seat inventory and the live engine state
	if err := s.SeedShowtimes(ctx, movieIDs, halls); err != nil {
		return fmt.Errorf("failed to seed showtimes: %w", err)
	}

	return nil
}

// SeedUsers creates 3 users: 1 admin and 2 regular users
func (s *Seeder) SeedUsers() (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	userIDs := make(map[string]uuid.UUID)

	// Hash password for all users (using "qwerty")
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("qwerty"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	usersData := []struct {
		key       string
		firstName string
		lastName  string
		email     string
		role      users.Role
	}{
		{"admin", "Admin", "User", "admin@cinebook.vn", users.RoleAdmin},
		{"user1", "Linh", "Tran", "linh.tran@example.com", users.RoleUser},
		{"user2", "Minh", "Nguyen", "minh.nguyen@example.com", users.RoleUser},
	}

	for _, userData := range usersData {
		user := users.User{
			ID:        uuid.New(),
			FirstName: userData.firstName,
			LastName:  userData.lastName,
			Email:     userData.email,
			Password:  string(hashedPassword),
			Role:      userData.role,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userData.email, err)
		}

		userIDs[userData.key] = user.ID
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.Role)
	}

	return userIDs, nil
}

// SeedMovies creates the movie catalog
func (s *Seeder) SeedMovies() ([]uuid.UUID, error) {
	fmt.Println("  🎬 Seeding movies...")

	var movieIDs []uuid.UUID

	moviesData := []struct {
		title       string
		genre       string
		durationMin int
		rating      string
		description string
		status      showtimes.MovieStatus
	}{
		{
			title:       "The Midnight Heist",
			genre:       "Action",
			durationMin: 128,
			rating:      "T16",
			description: "A retired safecracker is pulled back for one last job the night the city floods.",
			status:      showtimes.MovieStatusShowing,
		},
		{
			title:       "Letters from Da Lat",
			genre:       "Romance",
			durationMin: 105,
			rating:      "P",
			description: "Two strangers exchange letters through a hotel lobby drawer across twenty years.",
			status:      showtimes.MovieStatusShowing,
		},
		{
			title:       "Quantum Paradox",
			genre:       "Sci-Fi",
			durationMin: 142,
			rating:      "T13",
			description: "A physicist receives a message from a version of herself that made the other choice.",
			status:      showtimes.MovieStatusShowing,
		},
		{
			title:       "The Laughing Dragon",
			genre:       "Animation",
			durationMin: 95,
			rating:      "P",
			description: "A dragon who cannot breathe fire discovers his laugh is far more dangerous.",
			status:      showtimes.MovieStatusShowing,
		},
		{
			title:       "Silent Harbor",
			genre:       "Thriller",
			durationMin: 110,
			rating:      "T18",
			description: "A night-shift harbor master realizes the fog has been hiding more than ships.",
			status:      showtimes.MovieStatusComingSoon,
		},
	}

	for _, movieData := range moviesData {
		movie := showtimes.Movie{
			ID:          uuid.New(),
			Title:       movieData.title,
			Genre:       movieData.genre,
			DurationMin: movieData.durationMin,
			Rating:      movieData.rating,
			Description: movieData.description,
			Status:      movieData.status,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&movie).Error; err != nil {
			return nil, fmt.Errorf("failed to create movie %s: %w", movie.Title, err)
		}

		// Only showing movies get showtimes
		if movie.Status == showtimes.MovieStatusShowing {
			movieIDs = append(movieIDs, movie.ID)
		}
		fmt.Printf("    ✅ Created movie: %s (%s)\n", movie.Title, movie.Status)
	}

	return movieIDs, nil
}

// SeedCinemas creates cinemas and their halls
func (s *Seeder) SeedCinemas() ([]showtimes.Hall, error) {
	fmt.Println("  🏢 Seeding cinemas and halls...")

	var halls []showtimes.Hall

	cinemasData := []struct {
		name    string
		city    string
		address string
		halls   []struct {
			name        string
			rows        int
			seatsPerRow int
		}
	}{
		{
			name:    "CineBook Landmark",
			city:    "Ho Chi Minh City",
			address: "Vincom Center Landmark 81, Binh Thanh District",
			halls: []struct {
				name        string
				rows        int
				seatsPerRow int
			}{
				{"Hall 1", 8, 12},
				{"Hall 2", 6, 10},
			},
		},
		{
			name:    "CineBook Royal",
			city:    "Hanoi",
			address: "Royal City Megamall, Thanh Xuan District",
			halls: []struct {
				name        string
				rows        int
				seatsPerRow int
			}{
				{"Hall A", 8, 12},
				{"Hall B", 5, 8},
			},
		},
	}

	for _, cinemaData := range cinemasData {
		cinema := showtimes.Cinema{
			ID:        uuid.New(),
			Name:      cinemaData.name,
			City:      cinemaData.city,
			Address:   cinemaData.address,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&cinema).Error; err != nil {
			return nil, fmt.Errorf("failed to create cinema %s: %w", cinema.Name, err)
		}
		fmt.Printf("    ✅ Created cinema: %s (%s)\n", cinema.Name, cinema.City)

		for _, hallData := range cinemaData.halls {
			hall := showtimes.Hall{
				ID:          uuid.New(),
				CinemaID:    cinema.ID,
				Name:        hallData.name,
				Rows:        hallData.rows,
				SeatsPerRow: hallData.seatsPerRow,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}

			if err := s.db.PostgreSQL.Create(&hall).Error; err != nil {
				return nil, fmt.Errorf("failed to create hall %s: %w", hall.Name, err)
			}

			halls = append(halls, hall)
			fmt.Printf("      ✅ Created hall: %s / %s (%d seats)\n",
				cinema.Name, hall.Name, hall.Rows*hall.SeatsPerRow)
		}
	}

	return halls, nil
}

// SeedShowtimes schedules each showing movie across the halls over the next
// week, writes the per-seat metadata and initializes the engine state.
func (s *Seeder) SeedShowtimes(ctx context.Context, movieIDs []uuid.UUID, halls []showtimes.Hall) error {
	fmt.Println("  🎟️ Seeding showtimes...")

	basePrices := []decimal.Decimal{
		decimal.NewFromInt(90000),
		decimal.NewFromInt(85000),
		decimal.NewFromInt(120000),
		decimal.NewFromInt(75000),
	}

	// Evening slots, staggered across the coming week.
	firstSlot := time.Now().Truncate(time.Hour).Add(24 * time.Hour).Add(19 * time.Hour)

	count := 0
	for day := 0; day < 3; day++ {
		for i, movieID := range movieIDs {
			hall := halls[(day+i)%len(halls)]

			showtime := showtimes.Showtime{
				ID:        uuid.New(),
				MovieID:   movieID,
				HallID:    hall.ID,
				StartsAt:  firstSlot.AddDate(0, 0, day).Add(time.Duration(i) * 30 * time.Minute),
				Status:    showtimes.ShowtimeStatusScheduled,
				BasePrice: basePrices[i%len(basePrices)],
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}

			if err := s.db.PostgreSQL.Create(&showtime).Error; err != nil {
				return fmt.Errorf("failed to create showtime: %w", err)
			}

			if err := s.seedShowtimeSeats(ctx, &showtime, &hall); err != nil {
				return fmt.Errorf("failed to seed seats for showtime %s: %w", showtime.ID, err)
			}
			count++
		}
	}

	fmt.Printf("    ✅ Created %d showtimes with seat inventory and engine state\n", count)
	return nil
}

// seedShowtimeSeats writes the authoritative seat rows for one showtime and
// mirrors them into the Redis engine as available.
func (s *Seeder) seedShowtimeSeats(ctx context.Context, showtime *showtimes.Showtime, hall *showtimes.Hall) error {
	var (
		seatRows []showtimes.ShowtimeSeat
		seatReqs []seats.SeatRequest
	)

	for row := 0; row < hall.Rows; row++ {
		rowLabel := string(rune('A' + row))
		seatType, multiplier := seatTypeForRow(row, hall.Rows)

		for num := 1; num <= hall.SeatsPerRow; num++ {
			seatID := fmt.Sprintf("%s%d", rowLabel, num)

			seatRows = append(seatRows, showtimes.ShowtimeSeat{
				ID:         uuid.New(),
				ShowtimeID: showtime.ID,
				SeatID:     seatID,
				SeatType:   seatType,
				Price:      showtime.BasePrice.Mul(multiplier).Round(0),
				CreatedAt:  time.Now(),
			})
			seatReqs = append(seatReqs, seats.SeatRequest{
				SeatID:   seatID,
				SeatType: string(seatType),
			})
		}
	}

	if err := s.db.PostgreSQL.CreateInBatches(seatRows, 200).Error; err != nil {
		return fmt.Errorf("failed to insert seat rows: %w", err)
	}

	return s.engine.InitializeShowtimeSeats(ctx, showtime.ID.String(), seatReqs)
}

// seatTypeForRow maps a hall row to its seat type and price multiplier:
// the back row is couple seating, the two rows before it are vip, the back
// half is premium and everything else is standard.
func seatTypeForRow(row, totalRows int) (showtimes.SeatType, decimal.Decimal) {
	switch {
	case row == totalRows-1:
		return showtimes.SeatTypeCouple, decimal.NewFromFloat(2.2)
	case row >= totalRows-3:
		return showtimes.SeatTypeVIP, decimal.NewFromFloat(1.5)
	case row >= totalRows/2:
		return showtimes.SeatTypePremium, decimal.NewFromFloat(1.3)
	default:
		return showtimes.SeatTypeStandard, decimal.NewFromInt(1)
	}
}
