/*
Package domain contains the core data model of the Espalier engine:
the task contract, flow definitions, execution statuses, error
recovery actions and the snapshot/event types shared by the runtime
and its adapters.

It has no dependencies on the runtime or any adapter, so both sides
of the hexagon can import it freely.
*/
package domain
