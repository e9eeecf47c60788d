/*
Package observability provides monitoring sinks for the Espalier
engine: prometheus metrics wired to lifecycle hooks, plus a slog-based
event logger for auditing run transitions.
*/
package observability
