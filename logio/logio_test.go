package logio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/tomato42/fsresck/errs"
	"github.com/tomato42/fsresck/write"
)

func TestHeaderRoundTrip(t *testing.T) {
	hdr := Header{Operation: OpWrite, StartTime: 1.5, EndTime: 2.25, Offset: 0x1122334455, Length: 42}
	buf := make([]byte, HeaderSize)
	hdr.Encode(buf)
	got := DecodeHeader(buf)
	if got != hdr {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, hdr)
	}
}

func TestHeaderIsBigEndian(t *testing.T) {
	hdr := Header{Operation: 1}
	buf := make([]byte, HeaderSize)
	hdr.Encode(buf)
	if buf[0] != 0 || buf[1] != 0 || buf[2] != 0 || buf[3] != 1 {
		t.Fatalf("operation field not big-endian: % x", buf[:4])
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	writes := []write.Write{
		{Offset: 0, Data: []byte("hello")},
		{Offset: 512, Data: []byte{}},
		{Offset: 1024, Data: bytes.Repeat([]byte{0xAB}, 100)},
	}

	for _, wr := range writes {
		if _, err := w.Append(wr); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	r := NewReader(&buf)
	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(writes) {
		t.Fatalf("got %d writes, want %d", len(got), len(writes))
	}
	for i := range writes {
		if !got[i].Equal(writes[i]) {
			t.Fatalf("write %d mismatch: got %+v, want %+v", i, got[i], writes[i])
		}
	}
}

func TestReaderCleanEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestReaderTruncatedHeader(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 10)))
	_, err := r.Next()
	if !errors.Is(err, errs.TruncatedFile) {
		t.Fatalf("err = %v, want TruncatedFile", err)
	}
}

func TestReaderTruncatedPayload(t *testing.T) {
	hdr := Header{Operation: OpWrite, Length: 100}
	buf := make([]byte, HeaderSize)
	hdr.Encode(buf)
	buf = append(buf, []byte("short")...)

	r := NewReader(bytes.NewReader(buf))
	_, err := r.Next()
	if !errors.Is(err, errs.TruncatedFile) {
		t.Fatalf("err = %v, want TruncatedFile", err)
	}
}

func TestReaderSkipsOpNone(t *testing.T) {
	var buf bytes.Buffer

	noop := Header{Operation: OpNone, Length: 0}
	hdrBuf := make([]byte, HeaderSize)
	noop.Encode(hdrBuf)
	buf.Write(hdrBuf)

	w := NewWriter(&buf)
	real := write.Write{Offset: 7, Data: []byte("x")}
	if _, err := w.Append(real); err != nil {
		t.Fatalf("Append: %v", err)
	}

	r := NewReader(&buf)
	got, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !got.Equal(real) {
		t.Fatalf("got %+v, want %+v", got, real)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after the one real record, got %v", err)
	}
}

func TestReaderRejectsUnknownOperation(t *testing.T) {
	hdr := Header{Operation: 7, Length: 0}
	buf := make([]byte, HeaderSize)
	hdr.Encode(buf)

	r := NewReader(bytes.NewReader(buf))
	_, err := r.Next()
	if !errors.Is(err, errs.ProtocolState) {
		t.Fatalf("err = %v, want ProtocolState", err)
	}
}

func FuzzReaderNeverPanics(f *testing.F) {
	f.Add([]byte{})
	f.Add(make([]byte, HeaderSize))
	f.Add(bytes.Repeat([]byte{0xFF}, 5))

	f.Fuzz(func(t *testing.T, data []byte) {
		r := NewReader(bytes.NewReader(data))
		for {
			_, err := r.Next()
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, errs.TruncatedFile) {
					return
				}
				return
			}
		}
	})
}
