// Package shutdown coordinates process termination.
//
// Components register hooks as they start. When SIGINT or SIGTERM arrives,
// or the supplied context ends, the hooks run in reverse registration order
// under a shared deadline:
//
//	h := shutdown.NewHandler(30*time.Second, logger)
//	h.OnShutdown("store", store.Close)
//	err := h.Wait(ctx)
package shutdown
