// Package client provides the `eventual` command-line client.
//
// The CLI speaks the binary wire protocol to an eventual server, one TCP
// connection per request. It is primarily intended for developers and
// operators poking at streams from a terminal.
//
// # Address configuration
//
// The server address is discovered by the application that embeds the
// commands via an AddrFunc. The standalone binary reads EVENTUAL_ADDR
// (default localhost:4455) unless --addr is given.
//
// Usage
//
//	eventual write orders --data '{"sku":"A-1"}'
//	eventual write orders --id 0190c3a4-8a4e-7000-8000-000000000001 --data created
//
//	# Optimistic concurrency: only append if the head is the given id
//	eventual write orders --expect-head 0190c3a4-8a4e-7000-8000-000000000001 --data shipped
//	eventual write fresh --expect-head 00000000-0000-0000-0000-000000000000 --data first
//
//	eventual list orders --limit 10
//	eventual list orders --from 0190c3a4-8a4e-7000-8000-000000000001
//	eventual list orders --filter 'json.sku == "A-1"'
//	eventual list orders --filter 'size > 100 && text.contains("error")'
//
//	eventual repl
//	> write orders 0190c3a4-8a4e-7000-8000-000000000002 hello world
//	> list orders
//	> exit
//
// Notes
//
//   - list prints one JSON object per event with the id and one of
//     payload_json, payload_text or payload_b64.
//   - --filter is evaluated on the client; the server still streams every
//     event after the cursor, a page at a time.
//   - A failed write prints the id echoed by the server and its message.
package client
