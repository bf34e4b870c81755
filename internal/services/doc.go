// Package services defines the shared error taxonomy for pipeline stages.
//
// Stage and provider code wraps failures with one of the sentinel markers so
// the workflow manager can decide between retrying an item, skipping it, or
// parking it for manual intervention without inspecting error strings.
package services
