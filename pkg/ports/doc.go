/*
Package ports defines the driving-side interfaces of the Espalier
engine. Adapters (HTTP, CLI, observability sinks) depend on these
contracts rather than on the runtime implementation.
*/
package ports
