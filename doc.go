// Package props manages a mutable, file-backed set of named string
// properties accessed through strongly-typed keys.
//
// Every key carries an undo/redo history with a marker for the last
// value loaded from or saved to disk, so modification state survives
// edits that end back where they started. Values may reference other
// properties with ${name} placeholders, resolved recursively with cycle
// detection. A Manager composes the store, the reference evaluator, a
// pluggable wire codec, and listener fan-out behind one typed API.
//
// Basic use:
//
//	type Key string
//
//	const (
//		ServerHost Key = "SERVER_HOST"
//		ServerPort Key = "SERVER_PORT"
//	)
//
//	mgr := props.New("app.properties", map[Key]string{
//		ServerHost: "localhost",
//		ServerPort: "8080",
//	}, props.DotCase(ServerHost, ServerPort))
//	defer mgr.Close()
//
//	port, _ := mgr.Int(ServerPort)
package props
