// Package core implements the connection pool behind the public kubepool
// API: the keyed registry of client sessions, the retry/backoff creation
// path, the background health checker and idle sweeper, and the pool
// metrics. The public package wraps this with kubeconfig discovery and
// option plumbing.
package core
