// Package server implements the client endpoint each quorum node exposes.
//
// The endpoint speaks RESP, so any Redis client can talk to it. Commands:
//
//	PING [message]   PONG, or the message echoed back
//	STATUS           the node's role: leader, follower, candidate or inactive
//	LEADER           the leader's client address, or null when unknown
//	SUBMIT <op>      replicates an encoded kv operation, returns the encoded result
//	QUERY <op>       answers an encoded read on the leader
//	QUIT             closes the connection
//
// SUBMIT and QUERY on a node that is not the leader fail with
//
//	NOTLEADER <host:port>
//
// naming the leader's client address, or a bare NOTLEADER when no leader
// is known. Clients follow the hint and retry.
package server
