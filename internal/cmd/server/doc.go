// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// an eventual node: the storage runtime, the wire protocol listener, the
// optional HTTP and gRPC admin servers and the index sync scheduler, handling
// lifecycle and shutdown.
//
// Example:
//
//	cfg := config.Default()
//	cfg.Storage.DataDir = "./data"
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg})
package serverrun
