// Package service contains the application's business logic, orchestrating
// the domain model, persistence stores, recurrence math and event emission.
//
// Services depend on narrow repository interfaces defined in this package
// rather than on the stores directly, so tests can substitute in-memory
// fakes. Multi-step mutations (completing a recurring task, batch
// operations) run inside a single database transaction; lifecycle events
// are emitted only after the transaction commits and are best-effort.
package service
