// Package sentinel provides an immutable error type for sentinel error
// declarations.
//
// Sentinel errors created with errors.New are package-level variables that
// consumers could reassign. Error is a string-backed error type that can be
// declared as a const instead, making the sentinel genuinely immutable while
// remaining fully compatible with errors.Is through wrapped error chains.
package sentinel
