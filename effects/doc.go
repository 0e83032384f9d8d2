// Package effects is the handler runtime that the rest of effectpipe builds
// on, and the root of its combinator packages.
//
// A handler is registered in a context with a WithXxxEffectHandler call and
// performed through PerformResumableEffect (request/response) or
// FireAndForgetEffect (one way). Handlers are scoped: the end function
// returned at registration stops intake, drains what was already queued and
// then tears the handler down. Lookups that find no handler fail with
// ErrNoEffectHandler instead of panicking.
//
// Built on top of it:
//   - result: Result, Option and the ErrInfo error value
//   - plan: single-value computations and bounded Gather
//   - stream: lazy sequences of Results, resource scoping, fan-in
//   - resilience: retry and per-attempt timeout
//   - backpressure, fairness, ratelimit, batch: stream operators
//   - runtime: the driver that actually runs plans and streams
//   - log, binding, config, pool: handlers for logging, scoped
//     configuration and worker offload
//
// Example:
//
//	ctx, end := log.WithZapEffectHandler(ctx, 16, logger)
//	defer end()
//
//	out := runtime.Collect(ctx, backpressure.BoundedMap(
//	    stream.FromList(urls),
//	    fetch,
//	    backpressure.Policy{MaxConcurrent: 4, Ordered: true},
//	))
package effects
