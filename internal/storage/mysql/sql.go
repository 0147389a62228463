package mysql

const getRoomSQL = `
SELECT id, room_type_id, name, active
FROM rooms
WHERE id = ?
`

const getRoomTypeSQL = `
SELECT id, building_id, name, capacity
FROM room_types
WHERE id = ?
`

// Storage order is creation order; the resolver takes the first covering
// range when rules overlap, so ORDER BY id is load-bearing.
const listRateRangesSQL = `
SELECT id, room_type_id, start_date, end_date, weekday_price, weekend_price, min_nights, inactive
FROM rate_ranges
WHERE room_type_id = ?
ORDER BY id
`

const listRateOverridesSQL = `
SELECT id, room_type_id, day, price, min_nights, inactive
FROM rate_overrides
WHERE room_type_id = ?
ORDER BY id
`

const listFeeDefinitionsSQL = `
SELECT id, scope, owner_id, title, price_eur, mandatory, per_night, per_guest
FROM fee_definitions
WHERE scope = ? AND owner_id = ?
ORDER BY id
`

const getBookingSQL = `
SELECT id, room_id, group_id, check_in, check_out, guests, status, guest_name,
       invoice_sent, cleaning_done, custom_huf_price, total_amount
FROM bookings
WHERE id = ?
`

const listGroupBookingsSQL = `
SELECT id, room_id, group_id, check_in, check_out, guests, status, guest_name,
       invoice_sent, cleaning_done, custom_huf_price, total_amount
FROM bookings
WHERE group_id = ?
ORDER BY id
`

const listStandaloneBookingsSQL = `
SELECT id, room_id, group_id, check_in, check_out, guests, status, guest_name,
       invoice_sent, cleaning_done, custom_huf_price, total_amount
FROM bookings
WHERE group_id IS NULL AND status = 'active'
ORDER BY id
`

const listFeeLinesSQL = `
SELECT id, booking_id, scope, fee_id, title, price_eur, quantity
FROM booking_fees
WHERE booking_id = ?
ORDER BY id
`

const getGroupSQL = `
SELECT id, check_in, check_out, guest_name, invoice_sent, cleaning_done, custom_huf_price, total_amount
FROM booking_groups
WHERE id = ?
`

const listGroupsSQL = `
SELECT id, check_in, check_out, guest_name, invoice_sent, cleaning_done, custom_huf_price, total_amount
FROM booking_groups
ORDER BY id
`

// Half-open overlap: an existing stay collides iff it starts before the new
// check-out and ends after the new check-in. Turnover-day handovers pass.
const findOverlapSQL = `
SELECT id, room_id, group_id, check_in, check_out, guests, status, guest_name,
       invoice_sent, cleaning_done, custom_huf_price, total_amount
FROM bookings
WHERE room_id = ?
  AND status <> 'cancelled'
  AND id <> ?
  AND check_in < ?
  AND check_out > ?
ORDER BY check_in
LIMIT 1
`

const insertBookingSQL = `
INSERT INTO bookings
  (room_id, group_id, check_in, check_out, guests, status, guest_name,
   invoice_sent, cleaning_done, custom_huf_price, total_amount)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateBookingRoomSQL = `
UPDATE bookings SET room_id = ? WHERE id = ?
`

const updateBookingGuestsSQL = `
UPDATE bookings SET guests = ? WHERE id = ?
`

const deleteFeeLinesSQL = `
DELETE FROM booking_fees WHERE booking_id = ?
`

const insertFeeLinesPrefix = `
INSERT INTO booking_fees (booking_id, scope, fee_id, title, price_eur, quantity)
VALUES `

const setBookingTotalSQL = `
UPDATE bookings SET total_amount = ? WHERE id = ?
`

const setGroupTotalSQL = `
UPDATE booking_groups SET total_amount = ? WHERE id = ?
`

// Dissolution: the survivor turns standalone and takes over the group's stay
// window, guest identity and tracking flags.
const detachBookingSQL = `
UPDATE bookings
SET group_id = NULL,
    check_in = ?,
    check_out = ?,
    guest_name = ?,
    invoice_sent = ?,
    cleaning_done = ?,
    custom_huf_price = ?
WHERE id = ?
`

const reassignGroupPaymentsSQL = `
UPDATE payments SET group_id = NULL, booking_id = ? WHERE group_id = ?
`

const reassignBookingPaymentsSQL = `
UPDATE payments SET booking_id = ?, group_id = ? WHERE booking_id = ?
`

const deleteBookingSQL = `
DELETE FROM bookings WHERE id = ?
`

const deleteGroupSQL = `
DELETE FROM booking_groups WHERE id = ?
`
