// Package grpcserver hosts the gRPC admin endpoint of an eventual node. It
// registers the standard grpc.health.v1 Health service, which reports
// SERVING while the storage runtime passes its health check.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Backend: runtime.BackendDisk, DataDir: "./data"})
//	s := grpcserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
