// Package fake provides a deterministic api.PlatformAdapter double for
// scheduler unit tests.
package fake
