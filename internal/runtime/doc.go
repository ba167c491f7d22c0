// Package runtime owns the storage registry of a single eventual node: the
// name to Stream mapping, the selected backend and, for the pebble backend,
// the shared Pebble database.
//
// Streams are created lazily on first reference and live for the process
// lifetime. Concurrent first lookups of one name observe the same Stream.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Backend: runtime.BackendDisk, DataDir: "./data"})
//	defer rt.Close()
//	s, _ := rt.Stream("orders")
//	_, _ = s.Append(uuid.New(), []byte("hello"))
//	// Health
//	_ = rt.CheckHealth(context.Background())
package runtime
