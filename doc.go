// Package onion wraps plain Go functions in an ordered middleware chain.
//
// The central types are [Func] and [ArgsFunc]. They validate raw input,
// thread an accumulated [Values] map through every [Middleware] in
// registration order, call the handler, validate its output, and route any
// failure through an [ErrorHook] that may rethrow, transform, or recover.
package onion
