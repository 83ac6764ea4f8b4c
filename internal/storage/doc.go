// Package storage loads and saves a registry as a single file.
//
// The format is picked from the file extension: .yaml and .yml use YAML,
// anything else uses indented JSON. Both keep insertion order.
//
// Saves are atomic. Data is written to a temporary file in the same
// directory, synced and renamed over the destination, so a reader sees
// either the previous state or the new one, never a truncated file.
//
// # Locking
//
// When locking is enabled, Lock takes an exclusive flock on "<path>.lock".
// Callers hold it across load, mutate and save so that two kv processes do
// not lose each other's writes. Without it the last save wins.
package storage
