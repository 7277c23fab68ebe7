// Package kv implements the replicated key/value state machine driven by
// the quorum harness.
//
// Operations are plain values tagged with a Kind:
//
//	kv.Put("k", "v")   // returns the previous value, if any
//	kv.Get("k")        // returns the value and a found flag
//	kv.Delete("k")     // returns the removed value, if any
//	kv.Keys()          // returns all keys, sorted
//
// Writes are applied through the raft log by Machine.Apply. Reads are
// answered by Machine.Query after the node has confirmed leadership.
//
// Operations and results travel as bytes encoded by a Codec. Codecs are
// looked up by name from a fixed table:
//
//	c, err := kv.LookupCodec("msgpack")
//
// "binary" is a length-prefixed layout with one encode and decode function
// per kind. "msgpack" and "json" share one map layout and are encoded
// through hashicorp/go-msgpack handles.
package kv
