// Package pool provides the generic recycled-allocation freelist the
// scheduler uses for timeout task nodes: a typed Get/Put pool shape that
// drops the NUMA/zero-copy concerns that are specific to network buffers.
package pool
