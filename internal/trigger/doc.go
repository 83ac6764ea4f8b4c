// Package trigger runs the hooks bound to a completed storage operation.
//
// After a set, get or delete on a key, Fire collects every hook bound to that
// (action, key) pair and runs its command, in hook insertion order. A failing
// hook never stops the remaining ones; failures are collected in the Report.
//
// # Trigger chain
//
// A hook command may call kv again, and that nested invocation may fire more
// hooks. Each firing pushes an (action, key) frame onto a chain that is passed
// to hook commands in the KV_TRIGGER_CHAIN environment variable and kept on
// the Engine for in-process nesting. Firing is suppressed when:
//
//   - the frame is already on the chain (a hook re-triggering itself), or
//   - the chain has reached the maximum depth (default 8).
//
// Suppressions are reported, not treated as errors.
//
// # Command lines
//
// Before running, these placeholders are expanded (shell-quoted):
//
//   - {key}     - the key that was accessed
//   - {value}   - the value set, read or deleted
//   - {trigger} - set, get or delete
//   - {hook}    - the hook name
//
// The same values are exported as KV_KEY, KV_VALUE, KV_TRIGGER and KV_HOOK,
// together with KV_STORE_PATH and KV_TRIGGER_CHAIN.
package trigger
