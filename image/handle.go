package image

import (
	"hash/fnv"
	"path/filepath"
	"sync/atomic"
)

// ID uniquely identifies one logical image. It stays stable across frames
// even when the image's backing storage changes.
type ID uint64

// pathBit marks IDs derived from file paths so they never collide with
// counter-assigned IDs.
const pathBit ID = 1 << 63

var nextID atomic.Uint64

func newID() ID {
	return ID(nextID.Add(1)) &^ pathBit
}

// Handle refers to an image and knows how to reproduce its pixels.
// Handles are cheap to copy; copies share the same ID.
type Handle struct {
	id   ID
	path string
	data []byte
	rgba *Buffer
}

// FromPath returns a handle for the image stored at path. Handles created
// for the same cleaned path share an ID.
func FromPath(path string) Handle {
	clean := filepath.Clean(path)
	h := fnv.New64a()
	_, _ = h.Write([]byte(clean))
	return Handle{id: ID(h.Sum64()) | pathBit, path: clean}
}

// FromBytes returns a handle for encoded image bytes. Every call yields a
// new ID.
func FromBytes(data []byte) Handle {
	return Handle{id: newID(), data: data}
}

// FromRGBA returns a handle for raw premultiplied RGBA8 pixels.
// Every call yields a new ID. The pixels are not validated until loaded.
func FromRGBA(width, height int, pix []byte) Handle {
	return Handle{id: newID(), rgba: &Buffer{width: width, height: height, pix: pix}}
}

// ID returns the handle's identity.
func (h Handle) ID() ID { return h.id }

// Path returns the source path, or "" for in-memory handles.
func (h Handle) Path() string { return h.path }

// IsPath reports whether the handle is backed by a file.
func (h Handle) IsPath() bool { return h.path != "" }
