// Package throttle paces outbound RPC calls using a token-bucket
// algorithm from [golang.org/x/time/rate].
//
// # Gate
//
// A [Gate] holds one un-keyed bucket refilled at a fixed number of
// requests per second. The bucket starts full, so an idle gate admits up
// to one second's worth of requests at once. Every caller sharing a gate
// draws from the same quota.
//
// # Layer
//
// [NewLayer] builds a gate and returns an [rpc.Layer]. Each handler it
// wraps becomes a [Service] that waits for the gate before forwarding the
// request untouched:
//
//	l, err := throttle.NewLayer(40, nil)
//	if err != nil {
//		return err
//	}
//	h := rpc.Stack(transport, l, retryLayer)
//
// Wrapping more handlers with the same layer shares its gate. Build
// separate layers for independent quotas.
//
// # Jitter
//
// An optional [Jitter] adds a random delay after a token is acquired,
// spreading out callers that were admitted together. Jitter does not
// affect quota accounting.
//
// # Transport placement
//
// [NewRoundTripper] applies the same gate to an [http.RoundTripper] for
// callers that throttle below the RPC layer.
//
// When a context ends while a caller is waiting for a token, the call is
// abandoned without consuming the token and the returned error matches
// both [ErrAdmissionCanceled] and the context's error.
package throttle
