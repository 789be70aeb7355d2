package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// HoldResult captures one worker's attempt at the contested seats.
type HoldResult struct {
	Worker         int           `json:"worker"`
	StatusCode     int           `json:"status_code"`
	ErrorCode      string        `json:"error_code,omitempty"`
	BookingID      string        `json:"booking_id,omitempty"`
	IdempotencyKey string        `json:"idempotency_key"`
	ResponseTime   time.Duration `json:"response_time"`
	Body           []byte        `json:"-"`
	Error          string        `json:"error,omitempty"`
}

// FlashSuite drives many concurrent holds at the same seats and checks that
// exactly one wins.
type FlashSuite struct {
	BaseURL    string
	Token      string
	ShowtimeID string
	Seats      []string
	Workers    int
	Results    []HoldResult

	client *http.Client
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080/api/v1", "API base URL")
	showtimeID := flag.String("showtime", "", "Showtime ID to contest (required)")
	seatList := flag.String("seats", "A1,A2", "Comma-separated seat ids every worker fights for")
	workers := flag.Int("workers", 50, "Number of concurrent hold attempts")
	email := flag.String("email", "linh.tran@example.com", "Login email")
	password := flag.String("password", "qwerty", "Login password")
	flag.Parse()

	if *showtimeID == "" {
		log.Fatal("❌ -showtime is required (run cmd/seed and pick one from GET /showtimes)")
	}

	suite := &FlashSuite{
		BaseURL:    strings.TrimRight(*baseURL, "/"),
		ShowtimeID: *showtimeID,
		Seats:      strings.Split(*seatList, ","),
		Workers:    *workers,
		client:     &http.Client{Timeout: 30 * time.Second},
	}

	fmt.Println("🎟️ Starting Flash-Sale Contention Test...")
	fmt.Println("=========================================")

	// Test Redis connection
	if err := testRedisConnection(); err != nil {
		log.Fatalf("❌ Redis connection failed: %v", err)
	}
	fmt.Println("✅ Redis connection: OK")

	// Authenticate
	if err := suite.login(*email, *password); err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	fmt.Printf("✅ Authenticated as %s\n", *email)

	// Fire all workers at the same seats
	fmt.Printf("\n🔥 %d workers contesting seats %v on showtime %s\n",
		suite.Workers, suite.Seats, suite.ShowtimeID)
	suite.runContention()

	// Exactly-one-winner verdict
	winner := suite.verdict()

	// The winner's retry must replay the stored response, not hold again
	if winner != nil {
		fmt.Println("\n🔁 Replaying the winning request with the same idempotency key...")
		suite.checkReplay(winner)
	}

	suite.generateReport()

	fmt.Println("\n🎉 Flash-Sale Contention Test Complete!")
}

func testRedisConnection() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	defer client.Close()

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	return err
}

type apiEnvelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type apiError struct {
	StatusCode int    `json:"statusCode"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

// login obtains an access token through the normal auth flow.
func (s *FlashSuite) login(email, password string) error {
	payload, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	resp, err := s.client.Post(s.BaseURL+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}

	var auth struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(envelope.Data, &auth); err != nil {
		return err
	}
	if auth.AccessToken == "" {
		return fmt.Errorf("no access token in login response")
	}

	s.Token = auth.AccessToken
	return nil
}

// runContention releases every worker at once so the holds land on the
// engine in the same instant.
func (s *FlashSuite) runContention() {
	start := make(chan struct{})
	results := make([]HoldResult, s.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			<-start
			results[worker] = s.holdSeats(worker, uuid.NewString())
		}(i)
	}

	close(start)
	wg.Wait()

	s.Results = results
}

// holdSeats performs one POST /bookings/hold with its own idempotency key.
func (s *FlashSuite) holdSeats(worker int, idempotencyKey string) HoldResult {
	payload, _ := json.Marshal(map[string]interface{}{
		"showtime_id": s.ShowtimeID,
		"seats":       s.Seats,
	})

	result := HoldResult{Worker: worker, IdempotencyKey: idempotencyKey}

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/bookings/hold", bytes.NewReader(payload))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("X-Idempotency-Key", idempotencyKey)

	startedAt := time.Now()
	resp, err := s.client.Do(req)
	result.ResponseTime = time.Since(startedAt)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.StatusCode = resp.StatusCode
	result.Body = body

	if resp.StatusCode == http.StatusCreated {
		var envelope apiEnvelope
		if json.Unmarshal(body, &envelope) == nil {
			var booking struct {
				BookingID string `json:"booking_id"`
			}
			if json.Unmarshal(envelope.Data, &booking) == nil {
				result.BookingID = booking.BookingID
			}
		}
		return result
	}

	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil {
		result.ErrorCode = apiErr.ErrorCode
	}
	return result
}

// verdict checks the single invariant that matters: the same seats can only
// be won once. Returns the winning result, if any.
func (s *FlashSuite) verdict() *HoldResult {
	var winner *HoldResult
	winners, conflicts, others := 0, 0, 0

	for i := range s.Results {
		r := &s.Results[i]
		switch {
		case r.StatusCode == http.StatusCreated:
			winners++
			winner = r
		case r.StatusCode == http.StatusConflict && r.ErrorCode == "SEATS_NOT_AVAILABLE":
			conflicts++
		default:
			others++
			fmt.Printf("   ⚠️ worker %d: HTTP %d %s %s\n", r.Worker, r.StatusCode, r.ErrorCode, r.Error)
		}
	}

	fmt.Printf("\n🏁 Winners: %d | Seat conflicts: %d | Other outcomes: %d\n", winners, conflicts, others)
	if winners == 1 && others == 0 {
		fmt.Printf("✅ Exactly one hold won (booking %s), every other worker got SEATS_NOT_AVAILABLE\n", winner.BookingID)
	} else if winners > 1 {
		fmt.Printf("❌ OVERSELL: %d workers held the same seats\n", winners)
	} else if winners == 0 {
		fmt.Println("❌ Nobody won; were the seats already held or booked?")
	}

	return winner
}

// checkReplay re-sends the winner's exact request and expects the stored
// bytes back with the replay header set, not a second hold.
func (s *FlashSuite) checkReplay(winner *HoldResult) {
	payload, _ := json.Marshal(map[string]interface{}{
		"showtime_id": s.ShowtimeID,
		"seats":       s.Seats,
	})

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/bookings/hold", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("   ❌ replay request failed: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("X-Idempotency-Key", winner.IdempotencyKey)

	resp, err := s.client.Do(req)
	if err != nil {
		fmt.Printf("   ❌ replay request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("   ❌ replay read failed: %v\n", err)
		return
	}

	switch {
	case resp.StatusCode != winner.StatusCode:
		fmt.Printf("   ❌ replay returned HTTP %d, original was %d\n", resp.StatusCode, winner.StatusCode)
	case resp.Header.Get("X-Idempotent-Replay") != "true":
		fmt.Println("   ❌ replay is missing the X-Idempotent-Replay header")
	case !bytes.Equal(body, winner.Body):
		fmt.Println("   ❌ replay body differs from the original response")
	default:
		fmt.Println("   ✅ byte-identical replay with X-Idempotent-Replay: true")
	}
}

func (s *FlashSuite) generateReport() {
	fmt.Println("\n📊 LATENCY REPORT")
	fmt.Println("==========================")

	latencies := make([]time.Duration, 0, len(s.Results))
	for _, r := range s.Results {
		if r.Error == "" {
			latencies = append(latencies, r.ResponseTime)
		}
	}
	if len(latencies) == 0 {
		fmt.Println("No successful requests to report on")
		return
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Printf("Requests: %d\n", len(latencies))
	fmt.Printf("Min: %v\n", latencies[0])
	fmt.Printf("p50: %v\n", latencies[len(latencies)/2])
	fmt.Printf("p95: %v\n", latencies[len(latencies)*95/100])
	fmt.Printf("Max: %v\n", latencies[len(latencies)-1])
}
