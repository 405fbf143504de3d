// Package msgdriver holds the types shared by every package of the message
// processing driver: error categories, panic recovery, the logger contract
// and request metadata.
//
// The driver family includes:
//
//   - [driver]: execution loop routing a request through named units
//   - [unit]: processing unit contract and catalog
//   - [units]: built-in generic units
//   - [message]: addressable message values
//   - [shared]: per-request shared context with transaction ownership
//   - [deptree]: dependency tree used for flush detection
//
// [driver]: https://pkg.go.dev/github.com/fxsml/msgdriver/driver
// [unit]: https://pkg.go.dev/github.com/fxsml/msgdriver/unit
// [units]: https://pkg.go.dev/github.com/fxsml/msgdriver/units
// [message]: https://pkg.go.dev/github.com/fxsml/msgdriver/message
// [shared]: https://pkg.go.dev/github.com/fxsml/msgdriver/shared
// [deptree]: https://pkg.go.dev/github.com/fxsml/msgdriver/deptree
//
// # Errors
//
// Every error returned by the driver belongs to one of three categories:
//
//   - [ErrData]: bad or missing request data
//   - [ErrSystem]: configuration or infrastructure failure
//   - [ErrFatal]: unrecoverable failure, never deferred or handled
//
// Use [CategoryOf] or errors.Is to classify. [Aggregate] combines deferred
// errors into one that keeps the most severe category.
package msgdriver
