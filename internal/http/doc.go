// Package http provides HTTP handlers and middleware for the CRM API.
//
// Every route except /healthz requires an API key presented as
// "Authorization: Bearer <key>" or in the X-API-Key header.
//
//   - GET /leads?status=&q=, POST /leads, GET /leads/{id}, DELETE /leads/{id}:
//     lead management exchanging the `leadDTO` payload defined in lead_handler.go.
//   - POST /leads/{id}/move: applies a kanban drop. Body {"vocabulary","from","to"};
//     response {"lead","update","noop"}. Dropping a card on its own column is a
//     no-op and writes nothing.
//   - GET /pipeline?vocabulary=deals: every lead grouped by the stages of the
//     vocabulary, plus leads whose stored status is not a configured stage.
//   - POST /posts/preview: expands a recurrence without storing it. Body
//     {"start","recurrence_type","time_of_day","weekdays","end_date"}.
//   - GET /posts, POST /posts, GET /posts/{id}, DELETE /posts/{id},
//     DELETE /posts/series/{series_id}: social post scheduling and cancellation.
//   - GET /bookings, POST /bookings, GET /bookings/{id}, DELETE /bookings/{id}:
//     appointments; responses carry overlap warnings.
//   - GET /healthz: liveness, pings the database.
//
// Validation failures answer 422 with a field to message map.
package http
