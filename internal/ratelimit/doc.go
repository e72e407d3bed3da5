/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit implements per-key limiters for inbound requests:
// GCRA (leaky bucket) on top of throttled and sliding window on top of slidingwindow.
// Both track clients by key with a bounded number of keys.
package ratelimit
