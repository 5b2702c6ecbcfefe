/*
Package observability turns engine lifecycle events into logs and Prometheus metrics.

Both are expressed as domain.LifecycleHooks and can be combined with Merge:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Merge(observability.LogHooks(logger), m.Hooks())
	eng := runtime.NewEngine(graph, sessions, runtime.WithLifecycleHooks(hooks))
*/
package observability
