// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface for the local executor.
package inmemorystore
