// Package memory provides in-memory implementations of the store, CRM and
// directory interfaces. It is intended for testing and development.
package memory
