/*
Package servers runs the entropy vault HTTP API.

A Server mounts any number of RouteRegistrar handlers (the oracle, store and
seed handlers) on one chi router next to the operational endpoints:

	GET /livez     liveness
	GET /readyz    readiness, 503 while drained
	GET /drain     mark not ready so load balancers stop routing
	GET /undrain   mark ready again

Every route is wrapped in the go-utils request logger. pprof is mounted under
/debug when enabled.
*/
package servers
