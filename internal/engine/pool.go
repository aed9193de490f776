package engine

import (
	"sync"
	"unsafe"
)

// bufferPool holds read buffers between parser sessions. A session that
// reads many small files reuses one chunk-sized buffer instead of
// allocating per file.
var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, DefaultChunkSize)
		return &b
	},
}

// getBuffer gets a []byte buffer with at least size capacity from the pool.
// The buffer is returned with length 0.
func getBuffer(size int) []byte {
	p := bufferPool.Get().(*[]byte)
	buf := (*p)[:0]
	if cap(buf) < size {
		bufferPool.Put(p)
		return make([]byte, 0, size)
	}
	return buf
}

// putBuffer returns a buffer to the pool. Oversized buffers, grown by very
// long fields, are dropped.
func putBuffer(buf []byte) {
	const maxCapacity = 4 * DefaultChunkSize
	if buf == nil || cap(buf) > maxCapacity {
		return
	}
	buf = buf[:0]
	bufferPool.Put(&buf)
}

// unsafeString converts a []byte to a string without allocation.
//
// The result shares memory with b, so it is only used for comparisons that
// do not outlive the next write to b.
func unsafeString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
