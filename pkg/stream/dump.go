package stream

import (
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/tensorstream/pkg/tensor"
)

// dumpRecord is the on-disk form of one emitted tensor buffer.
type dumpRecord struct {
	Caps string `msgpack:"caps"`
	PTS  int64  `msgpack:"pts"`
	Data []byte `msgpack:"data"`
}

// DumpWriter serializes tensor buffers to a stream of msgpack records.
type DumpWriter struct {
	enc *msgpack.Encoder
}

func NewDumpWriter(w io.Writer) *DumpWriter {
	return &DumpWriter{enc: msgpack.NewEncoder(w)}
}

func (d *DumpWriter) Write(buf tensor.Buffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("stream: dump: %w", err)
	}
	rec := dumpRecord{
		Caps: buf.Desc.Caps(),
		PTS:  int64(buf.PTS),
		Data: buf.Data,
	}
	if err := d.enc.Encode(rec); err != nil {
		return fmt.Errorf("stream: dump: %w", err)
	}
	return nil
}

// DumpReader decodes buffers written by [DumpWriter]. Read returns
// io.EOF at the end of the stream.
type DumpReader struct {
	dec *msgpack.Decoder
}

func NewDumpReader(r io.Reader) *DumpReader {
	return &DumpReader{dec: msgpack.NewDecoder(r)}
}

func (d *DumpReader) Read() (tensor.Buffer, error) {
	var rec dumpRecord
	if err := d.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return tensor.Buffer{}, io.EOF
		}
		return tensor.Buffer{}, fmt.Errorf("stream: dump: %w", err)
	}
	desc, err := tensor.ParseCaps(rec.Caps)
	if err != nil {
		return tensor.Buffer{}, fmt.Errorf("stream: dump: %w", err)
	}
	buf := tensor.Buffer{Desc: desc, Data: rec.Data, PTS: time.Duration(rec.PTS)}
	if err := buf.Validate(); err != nil {
		return tensor.Buffer{}, fmt.Errorf("stream: dump: %w", err)
	}
	return buf, nil
}
