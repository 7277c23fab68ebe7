// Package cluster provisions, starts, observes and tears down a cluster of
// replicated key/value nodes for tests and examples.
//
// A Harness owns the nodes it provisions. Node i gets its engine address,
// client address and storage directory from an Allocator; a Provisioner
// builds the node from pluggable transport, storage, serializer and state
// machine factories without opening anything. Start then brings every node
// up concurrently under one deadline and polls until a leader is observed:
//
//	h, err := cluster.New(opts)
//	if err != nil {
//	    return err
//	}
//	defer h.Teardown(context.Background())
//
//	if err := h.ProvisionNodes(5); err != nil {
//	    return err
//	}
//	if err := h.Start(ctx); err != nil {
//	    return err
//	}
//	c, err := h.CreateClient(ctx)
//
// A LeaderTracker follows status reports from every node and keeps the
// last reported leader in an atomic cell. The FailoverDriver stops that
// leader and waits for another node to take over; the MembershipController
// adds a node to the running cluster.
//
// Errors carry one of the Err* kinds together with their cause. Teardown
// never fails: it logs what went wrong, counts it in the harness metrics
// and leaves the harness ready to provision again.
package cluster
