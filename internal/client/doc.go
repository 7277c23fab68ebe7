// Package client provides a cluster client built on go-redis.
//
// A Client holds one connection pool per node client endpoint. Requests go
// to the last node that accepted one; a node that is not the leader answers
// NOTLEADER, optionally naming the leader, and the client moves on:
//
//	c, err := client.New(endpoints, client.Options{Codec: codec})
//	if err != nil {
//	    return err
//	}
//	if err := c.Connect(ctx); err != nil {
//	    return err
//	}
//	defer c.Close(context.Background())
//
//	prev, err := c.Put(ctx, "greeting", "hello")
//
// Retries back off along a Fibonacci sequence and stop when the request
// context is done.
package client
