// Package handlers provides HTTP request handlers for the PageScope API.
package handlers

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog/log"
)

// jsonBufferPool provides reusable byte buffers for JSON decoding.
// This reduces GC pressure by avoiding frequent allocation of buffers.
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		// Typical analyze request is well under 4KB
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

func getBuffer() *bytes.Buffer {
	v := jsonBufferPool.Get()
	buf, ok := v.(*bytes.Buffer)
	if !ok {
		log.Warn().Interface("got_type", v).Msg("Unexpected type from json buffer pool")
		return bytes.NewBuffer(make([]byte, 0, 4096))
	}
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	jsonBufferPool.Put(buf)
}

// responseBufferPool provides reusable byte buffers for JSON encoding.
// Responses carry base64 screenshots, so these start large.
var responseBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 64*1024))
	},
}

// maxPooledResponseBuffer keeps oversized buffers out of the pool so one
// full-page capture does not pin megabytes of memory forever.
const maxPooledResponseBuffer = 4 * 1024 * 1024

func getResponseBuffer() *bytes.Buffer {
	v := responseBufferPool.Get()
	buf, ok := v.(*bytes.Buffer)
	if !ok {
		log.Warn().Interface("got_type", v).Msg("Unexpected type from response buffer pool")
		return bytes.NewBuffer(make([]byte, 0, 64*1024))
	}
	return buf
}

func putResponseBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledResponseBuffer {
		return
	}
	buf.Reset()
	responseBufferPool.Put(buf)
}
