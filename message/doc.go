// Package message defines the values units exchange and the dotted paths
// used to address into them.
//
// A [Value] is a [Scalar], a document ([Doc]), a [Map], a [List] or a
// [Native] Go value. An [Object] reads and writes values by path:
//
//	o := message.NewObject(message.Scalar(`<Order><Id>7</Id></Order>`))
//	id, _ := o.GetString("Order.Id") // "7"
//	_ = o.Set("Order.State", message.Scalar("open"))
//
// Paths may start with a root selector. [Resolve] tells a path prefixed
// with @context. (resolved against the shared context) from one prefixed
// with @message. or not prefixed at all (resolved against the input).
//
// A [NamedMessage] is an output addressed to a unit. The reserved names
// [Root], [Nobody] and [CommServer] mark the entry unit, a discarded output
// and the final response.
package message
