//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// passwordHashCost drops to the minimum under the race detector, where
// bcrypt at cost 12 makes the sqlite backed suites crawl.
func passwordHashCost() int {
	return bcrypt.MinCost
}
