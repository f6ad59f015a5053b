// Package splix composes the terminal multiplexer engine with its keystroke
// reader, log forwarding socket and gRPC socket into one runnable server.
package splix
