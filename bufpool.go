package clone

import "sync"

// maxPooledSize keeps one huge payload from pinning its buffer in the pool forever.
const maxPooledSize = 1 << 20

// bytesBufPool reuses serializer output buffers.
// This reduces GC pressure for the common case of many small payloads.
var bytesBufPool = sync.Pool{
	New: func() any {
		// A 4KB default is chosen to avoid re-allocations for common message sizes.
		b := make([]byte, 0, 4096)
		return &b
	},
}
