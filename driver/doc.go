/*
Package driver routes a request through a configured graph of named units.

A driver is configured from properties located by a key and a type:

	ASYNC_FLAG: "false"
	DEFER_EXCEPTIONS_FLAG: "true"
	CLASS_0: units.Forward
	KEY_0: orders.root
	TYPE_0: unit
	CLASS_1: units.Batch
	KEY_1: orders.batch
	TYPE_1: unit

Each KEY_n/TYPE_n pair locates the properties of one unit, which must at
least carry NAME. One unit must be named ROOT; it receives the request.

# Processing

Outputs a unit emits are pushed on a pending stack and delivered most
recent first. Output addressed to NOBODY, or without a value, is dropped.
When the stack is empty the driver searches the dependency tree of units
that received output for one not yet done and calls it without input. A
unit without further output is done; the request ends when every unit is.

In synchronous mode the first output addressed to COMM_SERVER is the
response and ends the loop at once. In asynchronous mode COMM_SERVER is
an ordinary unit name.

# Errors

Without DEFER_EXCEPTIONS_FLAG the first failing unit ends the request.
With it, failures are collected and combined with msgdriver.Aggregate once
every unit is done. Either way the shared context is rolled back, unless
an error handler unit is configured (ERROR_PROCESSOR_CLASS_NAME) and turns
the failure into a response, in which case it is committed. Panics inside
units are fatal: they skip the handler and are returned after rollback.

Units are cleaned up after every request; cleanup failures are reported
only when the request succeeded otherwise.
*/
package driver
