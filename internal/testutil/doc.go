// Package testutil provides small shared helpers for shellguard tests:
// assertions, a test logger, and temp-file helpers.
package testutil
