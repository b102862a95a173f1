// Package transport sends JSON-RPC packets to a node over HTTP. Its
// [HTTP] type is the innermost [rpc.Handler] of a pipeline.
//
// # Building a transport
//
// Use [Build] with functional options:
//
//	h, err := transport.Build("https://eth.example.com/v3/key",
//		transport.WithTimeout(10*time.Second),
//		transport.WithUserAgent("scanner/1.0"),
//	)
//
// # Throttling at the HTTP level
//
// [WithThrottle] puts a [throttle.Gate] in front of the underlying
// [http.RoundTripper] instead of in front of the handler. Passing the
// gate of an existing throttle layer keeps both placements on one quota.
//
// Non-200 responses surface as [*UnexpectedStatusError]. Rate-limit and
// unavailable statuses report themselves as retryable, which the retry
// layer honours.
package transport
