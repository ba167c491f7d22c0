// Package tcpserver serves the binary wire protocol: one request and one
// response per TCP connection, after which the server closes the connection.
//
// Each accepted connection runs on a bounded worker pool. When every worker is
// busy the accept loop blocks, so further connections wait in the kernel
// backlog. A failure on one connection is logged and never affects another.
//
// Per connection the handler moves through:
//
//	await version -> await type -> dispatch (write | conditional write | read | unknown)
//	-> send response -> close
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Backend: runtime.BackendDisk, DataDir: "./data"})
//	s := tcpserver.New(rt, tcpserver.Options{Workers: 8})
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, "localhost:4455")
package tcpserver
