/*
Package espalier is an engine for ordered task flows: named, reusable
sequences of work units that share a mutable context, with per-task
and flow-level failure recovery, external pause/resume/abort control,
and an in-band signaling channel tasks can use to request a pause.

# Concept

A flow is defined once as an ordered list of tasks plus flow-wide
options. Each Run creates a fresh execution context and returns a
Controller immediately; the engine loop drives the tasks
asynchronously until the run completes, fails, is aborted, or is
paused. The Controller is the only way external code touches a live
run: it exposes Pause, Resume, Abort, GetState and a single-resolution
completion handle (Done/Wait).

Tasks never run concurrently within one run; the shared context is a
cooperative single-writer map handed to each task in turn. Failures
route through the recovery protocol: a task-level error handler (or
the flow-level one) decides RETRY, SKIP, ABORT, or substitutes a
fallback value.

# Usage

	eng := espalier.New()

	err := eng.Define("checkout", []espalier.TaskSpec{
		{ID: "reserve", Func: reserveStock},
		{ID: "charge", Func: chargeCard, OnError: retryThenSkip},
		{ID: "notify", Func: sendReceipt},
	}, espalier.FlowOptions{DefaultMaxRetries: 2})
	if err != nil {
		log.Fatal(err)
	}

	ctrl, err := eng.Run(context.Background(), "checkout", map[string]any{
		"order_id": "ord-123",
	})
	if err != nil {
		log.Fatal(err)
	}

	final, err := ctrl.Wait(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(final["receipt_id"])
*/
package espalier
