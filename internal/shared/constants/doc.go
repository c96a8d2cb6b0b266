// Package constants centralizes tunable limits and defaults shared across
// the audit pipeline so behavior changes happen in one place.
package constants
