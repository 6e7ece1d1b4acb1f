// Package http provides HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"username","password"}.
//     Response: {"token","expires_at","user"} with the token also surfaced via
//     the `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie. Returns 204 No Content
//     and clears the cookie.
//   - GET /rooms, POST /rooms: room catalog endpoints exchanging the `roomDTO`
//     payload defined in room_handler.go. Listing is available to any
//     authenticated principal; creation requires the manage_catalog capability.
//   - GET /reservations, POST /reservations: reservation endpoints exchanging
//     the `reservationDTO` payload defined in reservation_handler.go. Listing
//     accepts `room_id`, `from`, `to`, and `exclude_status` query parameters.
//   - GET /reservations/{id}: returns a single reservation.
//   - DELETE /reservations/{id}: cancels a reservation; owners only.
//   - POST /reservations/{id}/approve, POST /reservations/{id}/reject:
//     decision endpoints for principals with the approve/reject capabilities.
//     A rejected reservation's slot becomes bookable again immediately.
//   - GET /decisions: the audit ledger of past decisions, readable by
//     principals who can decide reservations.
//   - GET /users, POST /users: account management for principals with the
//     manage_users capability, exchanging the `userDTO` payload defined in
//     user_handler.go.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
