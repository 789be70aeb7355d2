package seats

import "cinebook/pkg/cache"

// Script registry names. Every engine operation is one server-side script;
// Redis runs one script at a time, which is the only concurrency control the
// seat state relies on. Each script reads the clock via TIME so every
// held_until comparison uses the store's clock, never the caller's.
const (
	scriptBatchReserve  = "seats:batch_reserve"
	scriptConfirmSeats  = "seats:confirm"
	scriptReleaseSeats  = "seats:release"
	scriptCleanupHolds  = "seats:cleanup_expired"
	scriptSeatsStatus   = "seats:status"
	scriptExtendHold    = "seats:extend_hold"
)

// RegisterScripts registers every engine script with the executor. Call once
// at startup, before PreloadScripts.
func RegisterScripts(executor *cache.ScriptExecutor) {
	executor.Register(scriptBatchReserve, luaBatchReserve)
	executor.Register(scriptConfirmSeats, luaConfirmSeats)
	executor.Register(scriptReleaseSeats, luaReleaseSeats)
	executor.Register(scriptCleanupHolds, luaCleanupExpiredHolds)
	executor.Register(scriptSeatsStatus, luaGetSeatsStatus)
	executor.Register(scriptExtendHold, luaExtendHold)
}

// Lua script for atomic all-or-nothing seat holding. Phase 1 classifies every
// requested seat without writing; phase 2 runs only when every seat is
// reservable. An expired hold is reservable but was already counted out of
// the availability counter, so only previously-available seats decrement it.
const luaBatchReserve = `
-- KEYS[1] = seats hash key
-- KEYS[2] = available counter key
-- ARGV[1] = booking_id
-- ARGV[2] = hold_duration_seconds
-- ARGV[3..N] = seat_id, seat_type pairs

local seats_key = KEYS[1]
local counter_key = KEYS[2]
local booking_id = ARGV[1]
local duration = tonumber(ARGV[2])

if #ARGV < 4 or not duration or duration <= 0 then
    return cjson.encode({success = false, error = "INVALID_INPUT"})
end

local now = tonumber(redis.call("TIME")[1])

-- Phase 1: classify. Any non-reservable seat aborts before any write.
local unavailable = {}
local was_available = {}
for i = 3, #ARGV, 2 do
    local seat_id = ARGV[i]
    local raw = redis.call("HGET", seats_key, seat_id)
    if not raw then
        table.insert(unavailable, {seat_id = seat_id, reason = "NOT_FOUND"})
    else
        local seat = cjson.decode(raw)
        if seat.status == "booked" then
            table.insert(unavailable, {seat_id = seat_id, reason = "BOOKED"})
        elseif seat.status == "held" and seat.booking_id ~= booking_id and tonumber(seat.held_until) > now then
            table.insert(unavailable, {seat_id = seat_id, reason = "HELD"})
        else
            was_available[seat_id] = (seat.status == "available")
        end
    end
end

if #unavailable > 0 then
    return cjson.encode({success = false, unavailable = unavailable})
end

-- Phase 2: write all holds and decrement the counter by the seats that were
-- genuinely available. Re-holding an expired hold does not re-decrement.
local held_until = now + duration
local reserved = 0
local newly_taken = 0
for i = 3, #ARGV, 2 do
    local seat_id = ARGV[i]
    local seat_type = ARGV[i + 1]
    local record = {
        status = "held",
        seat_type = seat_type,
        booking_id = booking_id,
        held_until = held_until,
        reserved_at = now,
    }
    redis.call("HSET", seats_key, seat_id, cjson.encode(record))
    reserved = reserved + 1
    if was_available[seat_id] then
        newly_taken = newly_taken + 1
    end
end

if newly_taken > 0 then
    redis.call("DECRBY", counter_key, newly_taken)
end

return cjson.encode({success = true, reserved = reserved, expires_at = held_until})
`

// Lua script for per-seat confirmation after payment. A seat confirms only
// when it is held by this booking and the hold is unexpired. Confirmed seats
// are never rolled back by later failures in the same call; the failed list
// surfaces the partial state to the caller. The counter never moves here
// because a held seat was already counted out.
const luaConfirmSeats = `
-- KEYS[1] = seats hash key
-- ARGV[1] = booking_id
-- ARGV[2..N] = seat_ids

local seats_key = KEYS[1]
local booking_id = ARGV[1]
local now = tonumber(redis.call("TIME")[1])

local confirmed = {}
local failed = {}

for i = 2, #ARGV do
    local seat_id = ARGV[i]
    local raw = redis.call("HGET", seats_key, seat_id)
    if not raw then
        table.insert(failed, {seat_id = seat_id, reason = "NOT_FOUND"})
    else
        local seat = cjson.decode(raw)
        if seat.status == "booked" and seat.booking_id == booking_id then
            -- replayed confirm for a seat we already own
            table.insert(confirmed, seat_id)
        elseif seat.status ~= "held" then
            table.insert(failed, {seat_id = seat_id, reason = "NOT_HELD"})
        elseif seat.booking_id ~= booking_id then
            table.insert(failed, {seat_id = seat_id, reason = "WRONG_BOOKING"})
        elseif tonumber(seat.held_until) <= now then
            table.insert(failed, {seat_id = seat_id, reason = "HOLD_EXPIRED"})
        else
            seat.status = "booked"
            seat.confirmed_at = now
            seat.held_until = nil
            redis.call("HSET", seats_key, seat_id, cjson.encode(seat))
            table.insert(confirmed, seat_id)
        end
    end
end

local result = {}
if #confirmed > 0 then result.confirmed = confirmed end
if #failed > 0 then result.failed = failed end
return cjson.encode(result)
`

// Lua script for releasing seats back to available. Matches on booking_id
// regardless of held or booked status so refund flows can free booked seats.
// Once released the record keeps the previous booking and reason for audit.
const luaReleaseSeats = `
-- KEYS[1] = seats hash key
-- KEYS[2] = available counter key
-- ARGV[1] = booking_id
-- ARGV[2] = release reason
-- ARGV[3..N] = seat_ids

local seats_key = KEYS[1]
local counter_key = KEYS[2]
local booking_id = ARGV[1]
local reason = ARGV[2]
local now = tonumber(redis.call("TIME")[1])

local released = {}
local failed = {}

for i = 3, #ARGV do
    local seat_id = ARGV[i]
    local raw = redis.call("HGET", seats_key, seat_id)
    if not raw then
        table.insert(failed, {seat_id = seat_id, reason = "NOT_FOUND"})
    else
        local seat = cjson.decode(raw)
        if seat.booking_id == booking_id and (seat.status == "held" or seat.status == "booked") then
            local record = {
                status = "available",
                seat_type = seat.seat_type,
                released_at = now,
                released_reason = reason,
                previous_booking = booking_id,
            }
            redis.call("HSET", seats_key, seat_id, cjson.encode(record))
            table.insert(released, seat_id)
        else
            table.insert(failed, {seat_id = seat_id, reason = "WRONG_BOOKING"})
        end
    end
end

if #released > 0 then
    redis.call("INCRBY", counter_key, #released)
end

local result = {}
if #released > 0 then result.released = released end
if #failed > 0 then result.failed = failed end
return cjson.encode(result)
`

// Lua script that scans the whole hash and releases every expired hold.
const luaCleanupExpiredHolds = `
-- KEYS[1] = seats hash key
-- KEYS[2] = available counter key

local seats_key = KEYS[1]
local counter_key = KEYS[2]
local now = tonumber(redis.call("TIME")[1])

local all = redis.call("HGETALL", seats_key)
local released = {}

for i = 1, #all, 2 do
    local seat_id = all[i]
    local seat = cjson.decode(all[i + 1])
    if seat.status == "held" and tonumber(seat.held_until) <= now then
        local record = {
            status = "available",
            seat_type = seat.seat_type,
            released_at = now,
            released_reason = "HOLD_EXPIRED",
            previous_booking = seat.booking_id,
        }
        redis.call("HSET", seats_key, seat_id, cjson.encode(record))
        table.insert(released, seat_id)
    end
end

if #released > 0 then
    redis.call("INCRBY", counter_key, #released)
end

local result = {released = #released}
if #released > 0 then result.seat_ids = released end
return cjson.encode(result)
`

// Lua script for the read path. Before reading it runs the same expired-hold
// cleanup as the scan script (lazy reap), so a reader never sees a stale
// hold. Returns each record plus remaining_seconds for live holds.
const luaGetSeatsStatus = `
-- KEYS[1] = seats hash key
-- KEYS[2] = available counter key
-- ARGV[1..N] = optional seat_id filter (empty = all seats)

local seats_key = KEYS[1]
local counter_key = KEYS[2]
local now = tonumber(redis.call("TIME")[1])

if redis.call("EXISTS", seats_key) == 0 then
    return cjson.encode({exists = false})
end

local all = redis.call("HGETALL", seats_key)
local reaped = 0
local records = {}
for i = 1, #all, 2 do
    local seat_id = all[i]
    local seat = cjson.decode(all[i + 1])
    if seat.status == "held" and tonumber(seat.held_until) <= now then
        seat = {
            status = "available",
            seat_type = seat.seat_type,
            released_at = now,
            released_reason = "HOLD_EXPIRED",
            previous_booking = seat.booking_id,
        }
        redis.call("HSET", seats_key, seat_id, cjson.encode(seat))
        reaped = reaped + 1
    end
    records[seat_id] = seat
end

if reaped > 0 then
    redis.call("INCRBY", counter_key, reaped)
end

local wanted = {}
for i = 1, #ARGV do
    wanted[ARGV[i]] = true
end

local seats = {}
for seat_id, seat in pairs(records) do
    if #ARGV == 0 or wanted[seat_id] then
        local entry = {
            seat_id = seat_id,
            status = seat.status,
            seat_type = seat.seat_type,
        }
        if seat.booking_id then entry.booking_id = seat.booking_id end
        if seat.status == "held" then
            entry.remaining_seconds = tonumber(seat.held_until) - now
        end
        table.insert(seats, entry)
    end
end

local available = tonumber(redis.call("GET", counter_key)) or 0
local result = {exists = true, available = available, reaped = reaped}
if #seats > 0 then result.seats = seats end
return cjson.encode(result)
`

// Lua script for extending a live hold. An expired hold is never revived;
// the caller must go through batch-reserve again.
const luaExtendHold = `
-- KEYS[1] = seats hash key
-- ARGV[1] = booking_id
-- ARGV[2] = additional_seconds
-- ARGV[3..N] = seat_ids

local seats_key = KEYS[1]
local booking_id = ARGV[1]
local additional = tonumber(ARGV[2])

if #ARGV < 3 or not additional or additional <= 0 then
    return cjson.encode({success = false, error = "INVALID_INPUT"})
end

local now = tonumber(redis.call("TIME")[1])
local extended = {}
local failed = {}
local expires_at = 0

for i = 3, #ARGV do
    local seat_id = ARGV[i]
    local raw = redis.call("HGET", seats_key, seat_id)
    if not raw then
        table.insert(failed, {seat_id = seat_id, reason = "NOT_FOUND"})
    else
        local seat = cjson.decode(raw)
        if seat.status ~= "held" then
            table.insert(failed, {seat_id = seat_id, reason = "NOT_HELD"})
        elseif seat.booking_id ~= booking_id then
            table.insert(failed, {seat_id = seat_id, reason = "WRONG_BOOKING"})
        elseif tonumber(seat.held_until) <= now then
            table.insert(failed, {seat_id = seat_id, reason = "HOLD_EXPIRED"})
        else
            seat.held_until = tonumber(seat.held_until) + additional
            redis.call("HSET", seats_key, seat_id, cjson.encode(seat))
            table.insert(extended, seat_id)
            if seat.held_until > expires_at then
                expires_at = seat.held_until
            end
        end
    end
end

local result = {success = true, extended = #extended}
if expires_at > 0 then result.expires_at = expires_at end
if #failed > 0 then result.failed = failed end
return cjson.encode(result)
`
