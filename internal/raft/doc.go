// Package raft adapts the hashicorp/raft consensus engine into the node
// capability surface the quorum harness drives.
//
// # Overview
//
// A Node owns one engine instance plus the transport and stores it was
// started with:
//   - Start, Stop and Delete manage its lifecycle
//   - Status, LeaderEndpoint and LeaderClientEndpoint describe its view of the cluster
//   - OnStatusChange delivers role changes to listeners
//   - Apply, Query and AddVoter are served by the leader only
//
// # Pluggable Parts
//
// Transports and stores are built by factories when a node starts, so
// construction never binds ports or opens files:
//
//	TCPTransport(maxPool, timeout)   // engine NetworkTransport over TCP
//	NewInmemNetwork().Factory()      // engine InmemTransport, all peers wired
//	MemoryStorage()                  // engine InmemStore, nothing on disk
//	BoltStorage()                    // raft-boltdb log and stable store
//	BadgerStorage()                  // Badger log and stable store
//
// # Usage
//
//	node, err := raft.NewNode(raft.NodeConfig{
//	    ID:           "node-0",
//	    Server:       raft.Endpoint{Host: "127.0.0.1", Port: 9000},
//	    Client:       raft.Endpoint{Host: "127.0.0.1", Port: 10000},
//	    DataDir:      "/tmp/quorum/node-0",
//	    Peers:        peers,
//	    Bootstrap:    true,
//	    Transport:    raft.TCPTransport(3, 2*time.Second),
//	    Storage:      raft.BoltStorage(),
//	    StateMachine: kv.NewMachine(codec),
//	})
//	if err != nil {
//	    return err
//	}
//	if err := node.Start(); err != nil {
//	    return err
//	}
//	defer node.Delete()
//
// # Failure Handling
//
// The cluster can tolerate (N-1)/2 failures for N nodes:
//   - 3 nodes: tolerates 1 failure
//   - 5 nodes: tolerates 2 failures
//   - 7 nodes: tolerates 3 failures
package raft
