// Package netcode implements a forward-error-correction codec for
// unreliable datagram streams: an encoder turns a stream of user
// payloads into source and repair packets, and a decoder reconstructs
// lost sources from surviving sources and repairs by inverting a
// coefficient matrix over a Galois field.
//
// The package only deals in byte buffers handed to it and byte buffers
// it hands back through sinks; sockets, timers and CLI plumbing are the
// caller's concern.
package netcode
