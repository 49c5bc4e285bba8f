// Package server provides HTTP routing, middleware, and the webhook listener.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers so the first one added runs outermost.
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Webhook Handler
//
// [WebhookHandler] serves /webhook. It answers the tracker's X-Hook-Secret handshake, optionally checks
// X-Hook-Signature against a configured secret, decodes the event batch and hands it to a [Dispatcher].
// With Async set the response is written before the batch is processed; [WebhookHandler.Wait] blocks until
// outstanding batches finish, which the serve command uses during shutdown.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
