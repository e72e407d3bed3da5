/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a bounded in-memory cache with LRU eviction and Prometheus metrics.
// The gateway uses it to keep per-client rate limiters.
package lrucache
