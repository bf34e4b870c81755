// Package daemon ties the long-running pieces together: it enforces
// single-instance execution with a lock file, runs the workflow manager and
// discovery sweeps, and exposes the local HTTP API the CLI talks to.
package daemon
