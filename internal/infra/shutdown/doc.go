// Package shutdown runs cleanup hooks when the process receives SIGINT or
// SIGTERM, then exits.
//
// A dsh session may be blocked reading stdin when the operator presses
// Ctrl-C, so cancelling a context is not enough: the handler disconnects
// the MQTT client through its hooks and terminates the process itself.
//
//	h := shutdown.NewHandler(2 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return client.Disconnect(ctx) })
//	ctx, stop := h.Watch(context.Background())
//	defer stop()
package shutdown
