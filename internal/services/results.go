// Package services holds the application services: the ledger engine
// that records transactions and applies their balance side-effects,
// plus the account, category and user services around it.
package services

// Result is the envelope every service operation returns to the
// boundary layer: an HTTP-style status, a human message and the
// projected payload.
type Result struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
