// Package recapi provides types, interfaces, and helpers for working with the
// records API.
//
// # Overview
//
// The recapi package defines the domain types (Job, Record, ImportResult,
// Health, SystemMetrics) and the interfaces for the resource clients
// (JobsClient, RecordsClient, ImportsClient, MonitoringClient). The concrete
// implementation lives in the recclient package, which wires configuration,
// transport, caching, retries, and cancellation. Most consumers construct a
// client with recclient and then use the interfaces exposed here.
//
// # Calls
//
// Every operation is described by a RequestDescriptor and executed through
// one pipeline: cache lookup, optional coalescing, the exchange with retries,
// schema validation, and cache storage. Reads are cached under a fingerprint
// of method, path, sorted query, and body digest. Mutations drop the cache
// tags they name once they succeed.
//
//	page, err := cli.Jobs().List(ctx, recapi.NewQueryParams().WithPage(1).WithLimit(50))
//	if err != nil { /* handle error */ }
//
//	all, err := recapi.FetchAllPages(ctx, func(ctx context.Context, page int) (*recapi.Page[recapi.Job], error) {
//	  return cli.Jobs().List(ctx, recapi.NewQueryParams().WithPage(page))
//	}, 0)
//
// # Errors
//
// Failures are one of three kinds. HTTPError carries a non-2xx status and the
// server message, ValidationError lists the fields a response violated, and
// TransportError reports a timeout, network failure, or cancellation. Use
// KindOf to branch on the kind, or the helpers IsNotFound, IsUnauthorized,
// IsValidation, IsTimeout, and IsCancelled.
//
// # Interceptors and metrics
//
// InterceptorChain runs request interceptors before and response interceptors
// after every exchange. MetricsCollector exports Prometheus counters for
// requests, calls, retries, cache hits, coalescing, and cancellations.
package recapi
