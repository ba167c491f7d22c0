// Package httpserver hosts the read-only HTTP admin API of an eventual node
// on a chi router.
//
// Routes:
//
//	GET /v1/healthz
//	GET /v1/streams
//	GET /v1/streams/{name}/head
//	GET /v1/streams/{name}/events?cursor=<uuid>&limit=<n>
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Backend: runtime.BackendDisk, DataDir: "./data"})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
