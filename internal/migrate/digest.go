package migrate

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/zeebo/xxh3"
)

// rowDigest accumulates an xxh3-64 hash over rows in scan order. Each value
// is written with a one-byte type tag so that, say, the integer 1 and the
// string "1" hash differently.
type rowDigest struct {
	h   *xxh3.Hasher
	buf [9]byte
}

func newRowDigest() *rowDigest {
	return &rowDigest{h: xxh3.New()}
}

func (d *rowDigest) add(row []any) {
	for _, v := range row {
		d.value(v)
	}
	_, _ = d.h.Write([]byte{'\n'})
}

func (d *rowDigest) value(v any) {
	switch x := v.(type) {
	case nil:
		d.tag('n')
	case int64:
		d.fixed('i', uint64(x))
	case float64:
		d.fixed('f', math.Float64bits(x))
	case bool:
		if x {
			d.fixed('b', 1)
		} else {
			d.fixed('b', 0)
		}
	case string:
		d.bytes('s', []byte(x))
	case []byte:
		d.bytes('x', x)
	case time.Time:
		d.bytes('t', []byte(x.UTC().Format(time.RFC3339Nano)))
	default:
		d.bytes('?', []byte(fmt.Sprintf("%T:%v", v, v)))
	}
}

func (d *rowDigest) tag(t byte) {
	_, _ = d.h.Write([]byte{t})
}

func (d *rowDigest) fixed(t byte, u uint64) {
	d.buf[0] = t
	binary.LittleEndian.PutUint64(d.buf[1:], u)
	_, _ = d.h.Write(d.buf[:])
}

func (d *rowDigest) bytes(t byte, b []byte) {
	d.fixed(t, uint64(len(b)))
	_, _ = d.h.Write(b)
}

// Sum returns the digest as 16 hex characters.
func (d *rowDigest) Sum() string {
	return fmt.Sprintf("%016x", d.h.Sum64())
}
