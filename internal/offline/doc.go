// Package offline provides the durable FIFO of actions attempted while
// the backing network was unreachable.
//
// Items are replayed strictly in enqueue order when connectivity
// returns; the queue is cleared only once every item has replayed
// successfully (at-least-once delivery). A single-drain guard makes the
// online transition idempotent: the engine can trigger a drain on every
// reconnect without ever running two concurrently.
package offline
