package constants

import (
	"fmt"
	"time"
)

// Redis key registry for CineBook.
// Pattern: cinebook:{module}:{identifier}
//
// Engine keys are the live seat state and are written only by Lua scripts;
// cache keys are disposable read-through copies of Postgres data.

// ================== KEY PREFIX ==================

const (
	CACHE_PREFIX = "cinebook"
)

// ================== SEAT ENGINE KEYS ==================

// Per-showtime engine keys. The seats hash is the source of truth for live
// seat state; the counter is an optimization kept in sync by the scripts.
const (
	ENGINE_KEY_SEATS     = CACHE_PREFIX + ":seats:"     // + showtime-id (hash: seat_id -> seat record JSON)
	ENGINE_KEY_AVAILABLE = CACHE_PREFIX + ":available:" // + showtime-id (integer counter)
)

// Engine TTLs
const (
	TTL_SHOWTIME_KV = 7 * 24 * time.Hour // cold showtimes evict automatically
)

// ================== HOLD / BOOKING DURATIONS ==================

const (
	DEFAULT_HOLD_DURATION  = 10 * time.Minute
	DEFAULT_PAYMENT_EXPIRY = 15 * time.Minute
	DEFAULT_IDEMPOTENCY_TTL = 24 * time.Hour
	MAX_SEATS_PER_BOOKING  = 10
)

// ================== SHOWTIMES MODULE (read-through cache) ==================

const (
	CACHE_KEY_SHOWTIME_DETAIL = CACHE_PREFIX + ":showtimes:detail:uuid:" // + showtime-id
	CACHE_KEY_SHOWTIME_LIST   = CACHE_PREFIX + ":showtimes:list"         // + :page:X:limit:Y
	CACHE_KEY_MOVIE_DETAIL    = CACHE_PREFIX + ":movies:detail:uuid:"    // + movie-id
)

const (
	TTL_SHOWTIME_DETAIL = 5 * time.Minute
	TTL_SHOWTIME_LIST   = 2 * time.Minute
	TTL_MOVIE_DETAIL    = 1 * time.Hour
)

// ================== ANALYTICS MODULE (read-through cache) ==================

const (
	CACHE_KEY_ANALYTICS_DASHBOARD = CACHE_PREFIX + ":analytics:dashboard"
	CACHE_KEY_ANALYTICS_SHOWTIME  = CACHE_PREFIX + ":analytics:showtime:uuid:" // + showtime-id
)

const (
	TTL_ANALYTICS_DASHBOARD = 2 * time.Minute
	TTL_ANALYTICS_SHOWTIME  = 1 * time.Minute
)

// ================== RATE LIMITING ==================

const (
	RATELIMIT_KEY_PREFIX = CACHE_PREFIX + ":ratelimit:" // + client-ip:limit-type (sliding window ZSET)
)

// ================== EVENT STREAM ==================

// Consumed booking events are archived in a capped list so operators can
// inspect recent lifecycle activity without a Kafka client.
const (
	EVENTS_ARCHIVE_KEY = CACHE_PREFIX + ":events:recent"
	EVENTS_ARCHIVE_MAX = 1000
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_SHOWTIMES_ALL = CACHE_PREFIX + ":showtimes:*"
	PATTERN_INVALIDATE_MOVIES_ALL    = CACHE_PREFIX + ":movies:*"
)

// ================== KEY BUILDERS ==================

// SeatsKey returns the engine hash key for a showtime.
func SeatsKey(showtimeID string) string {
	return ENGINE_KEY_SEATS + showtimeID
}

// AvailableKey returns the engine counter key for a showtime.
func AvailableKey(showtimeID string) string {
	return ENGINE_KEY_AVAILABLE + showtimeID
}

func BuildShowtimeDetailKey(showtimeID string) string {
	return CACHE_KEY_SHOWTIME_DETAIL + showtimeID
}

func BuildShowtimeListKey(page, limit int) string {
	return CACHE_KEY_SHOWTIME_LIST + ":page:" + fmt.Sprintf("%d", page) + ":limit:" + fmt.Sprintf("%d", limit)
}

func BuildMovieDetailKey(movieID string) string {
	return CACHE_KEY_MOVIE_DETAIL + movieID
}

func BuildAnalyticsShowtimeKey(showtimeID string) string {
	return CACHE_KEY_ANALYTICS_SHOWTIME + showtimeID
}
