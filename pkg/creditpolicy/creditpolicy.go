// Package creditpolicy holds the per-term credit ceiling rule shared by the
// advisory selection pre-check and the authoritative ledger.
package creditpolicy

// DefaultCeiling is the per-term credit-hour ceiling used when none is configured.
const DefaultCeiling = 21

// CanAdd reports whether a course of courseCredits fits under ceiling given
// the student's committed credits for the term and the credits already held
// in the selection. Reaching the ceiling exactly is allowed.
func CanAdd(studentCurrentTermCredits, alreadySelectedCredits, courseCredits, ceiling int) bool {
	return studentCurrentTermCredits+alreadySelectedCredits+courseCredits <= ceiling
}

// Remaining returns the credits still available under ceiling. It goes
// negative when the inputs already exceed it.
func Remaining(studentCurrentTermCredits, alreadySelectedCredits, ceiling int) int {
	return ceiling - studentCurrentTermCredits - alreadySelectedCredits
}
