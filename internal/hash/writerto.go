package hash

import (
	"bytes"
	"encoding/binary"
	"io"
)

// WriterToWithDomain is a value that serializes itself and names its domain.
// Two implementors must never share a domain.
type WriterToWithDomain interface {
	io.WriterTo
	Domain() string
}

// writeWithDomain writes len(domain) ∥ domain ∥ len(data) ∥ data, with 4 byte big-endian lengths,
// so that no two sequences of writes produce the same input.
func writeWithDomain(w io.Writer, object WriterToWithDomain) error {
	var data bytes.Buffer
	if _, err := object.WriteTo(&data); err != nil {
		return err
	}
	domain := object.Domain()
	buf := make([]byte, 0, 8+len(domain)+data.Len())
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(domain)))
	buf = append(buf, domain...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(data.Len()))
	buf = append(buf, data.Bytes()...)
	_, err := w.Write(buf)
	return err
}

// domainBytes annotates raw bytes with a domain.
type domainBytes struct {
	domain string
	data   []byte
}

func (b domainBytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.data)
	return int64(n), err
}

func (b domainBytes) Domain() string {
	return b.domain
}
