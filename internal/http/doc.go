// Package http provides HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}. The token
//     is also surfaced via the `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 No Content and clears the cookie.
//   - GET /resources, GET /resources/{id}: read-only resource catalog endpoints
//     exchanging the `resourceDTO` payload defined in resource_handler.go. Listing
//     accepts a `kind` query parameter (room or vehicle).
//   - GET /bookings, POST /bookings, DELETE /bookings/{id}: booking ledger endpoints
//     exchanging the `bookingDTO` payload defined in booking_handler.go. Creation names
//     the pool via the `kind` body field; listing accepts `kind`, `resource_id`, and
//     `user_id` query parameters. Listing without a `resource_id` filter, or with a
//     `user_id` other than the caller's, requires an administrator session.
//   - GET /availability: reports whether a resource is free for a half-open interval.
//     Query parameters: `resource_id`, `start`, `end`, and optionally `kind`; when
//     `kind` is omitted the pool is resolved from the resource catalog.
//   - POST /bookings/{id}/participants, GET /bookings/{id}/participants: invitation
//     roster endpoints for room bookings.
//   - POST /participants/{id}/response: records an invitee's answer. Body: {"status"}
//     with accepted or declined.
//   - GET /calendar: the unified per-user calendar across both pools. The optional
//     `user_id` query parameter is honored for administrators.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
