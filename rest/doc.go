// Package rest executes HTTP API requests with per-route rate-limit
// accounting, bounded retries, and typed error classification.
//
// # Routes
//
// Requests are addressed by compiled routes. A Route pairs an HTTP method
// with a path template; Compile substitutes parameters and captures the
// major parameter that drives bucket separation:
//
//	route, err := rest.CreateMessage.Compile(channelID)
//	if err != nil {
//	    return err
//	}
//	var msg Message
//	err = client.DoJSON(ctx, route, payload, &msg)
//
// The package ships a catalog of common routes (GetChannel, CreateMessage,
// FetchGatewayBot's GetGatewayBot, ...); callers can declare their own
// Route values for anything else.
//
// # Rate limits
//
// Every request reserves a permit from a ratelimit.Registry bucket before
// it is sent, then passes the shared global gate. Response headers are
// applied back to the bucket on every outcome, so local accounting tracks
// server truth. Reservation waits are capped (WithMaxReservationWait);
// waits that would exceed the cap fail fast with errors.RateLimitedError
// instead of parking the caller.
//
// A 429 response is retried exactly once after the server's retry_after.
// A second 429, or a retry_after beyond the reservation-wait cap, surfaces
// errors.RateLimitedError to the caller. Global 429s throttle the shared
// gate so unrelated requests stop burning the quota.
//
// # Retries
//
// Responses with status 500, 502, 503 or 504 and transport-level failures
// are retried on an exponential backoff schedule (retry.HTTP by default)
// up to the attempt budget, after which errors.ServerError reports the
// attempts made. Other 4xx responses are never retried and surface as
// errors.ClientError with the server's error code and message.
//
// All waits respect context cancellation, and a cancelled request releases
// its bucket permit immediately.
package rest
