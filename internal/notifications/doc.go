// Package notifications sends operator push notifications through ntfy.
// Individual event classes can be switched off in configuration; an empty
// topic disables the service entirely.
package notifications
