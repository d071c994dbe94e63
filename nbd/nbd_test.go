package nbd

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/tomato42/fsresck/errs"
)

func TestRequestRoundTripWrite(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Type: Write, Handle: 42, Offset: 4096, Length: 4, Data: []byte("abcd")}
	if err := req.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := DecodeRequest(&buf)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got.Type != req.Type || got.Handle != req.Handle || got.Offset != req.Offset || got.Length != req.Length {
		t.Fatalf("got %+v, want %+v", got, req)
	}
	if string(got.Data) != string(req.Data) {
		t.Fatalf("data mismatch: got %q, want %q", got.Data, req.Data)
	}
}

func TestRequestRoundTripReadHasNoPayload(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Type: Read, Handle: 7, Offset: 0, Length: 512}
	if err := req.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() != requestHeaderSize {
		t.Fatalf("READ request should carry no payload bytes on the wire, got %d extra bytes", buf.Len()-requestHeaderSize)
	}
}

func TestDecodeRequestBadMagic(t *testing.T) {
	buf := make([]byte, requestHeaderSize)
	_, err := DecodeRequest(bytes.NewReader(buf))
	if !errors.Is(err, errs.ProtocolMagic) {
		t.Fatalf("err = %v, want ProtocolMagic", err)
	}
}

func TestDecodeRequestCleanEOF(t *testing.T) {
	_, err := DecodeRequest(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestDecodeRequestTruncated(t *testing.T) {
	_, err := DecodeRequest(bytes.NewReader(make([]byte, 5)))
	if !errors.Is(err, errs.TruncatedFile) {
		t.Fatalf("err = %v, want TruncatedFile", err)
	}
}

func TestResponseCodecReadPayloadRoundTrip(t *testing.T) {
	rc := NewResponseCodec()
	rc.ExpectRead(99, 8)

	var buf bytes.Buffer
	resp := Response{Handle: 99, Data: []byte("readback")}
	if err := resp.Encode(&buf, true); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := rc.Recv(&buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got.Handle != 99 || string(got.Data) != "readback" {
		t.Fatalf("got %+v", got)
	}

	// the expectation should have been consumed
	var buf2 bytes.Buffer
	resp2 := Response{Handle: 99}
	if err := resp2.Encode(&buf2, false); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got2, err := rc.Recv(&buf2)
	if err != nil {
		t.Fatalf("Recv (no payload expected): %v", err)
	}
	if len(got2.Data) != 0 {
		t.Fatalf("expected no payload after expectation consumed, got %d bytes", len(got2.Data))
	}
}

func TestResponseCodecWriteResponseHasNoPayload(t *testing.T) {
	rc := NewResponseCodec()

	var buf bytes.Buffer
	resp := Response{Handle: 5}
	if err := resp.Encode(&buf, false); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := rc.Recv(&buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if len(got.Data) != 0 {
		t.Fatalf("expected no payload, got %d bytes", len(got.Data))
	}
}

func TestResponseCodecBadMagic(t *testing.T) {
	rc := NewResponseCodec()
	_, err := rc.Recv(bytes.NewReader(make([]byte, responseHeaderSize)))
	if !errors.Is(err, errs.ProtocolMagic) {
		t.Fatalf("err = %v, want ProtocolMagic", err)
	}
}

func TestResponseCodecErrorSkipsPayload(t *testing.T) {
	rc := NewResponseCodec()
	rc.ExpectRead(3, 16)

	var buf bytes.Buffer
	resp := Response{Handle: 3, Error: EIO}
	if err := resp.Encode(&buf, false); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := rc.Recv(&buf)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got.Error != EIO {
		t.Fatalf("got error %v, want EIO", got.Error)
	}
	if len(got.Data) != 0 {
		t.Fatalf("an error response must not be followed by payload bytes")
	}
}
