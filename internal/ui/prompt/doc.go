// Package prompt provides simple interactive prompts.
//
// Prompts render on stderr so that stdout stays clean for data.
//
// Available prompts:
//   - [Confirm]: Yes/No confirmation prompt
package prompt
