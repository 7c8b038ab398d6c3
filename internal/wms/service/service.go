// Package service implements the warehouse operations: the location
// directory, the stock ledger and the pick list engine. Every mutation runs
// in one store transaction together with the ledger entries it produces;
// events are published only after the transaction commits.
package service

import (
	"time"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}
