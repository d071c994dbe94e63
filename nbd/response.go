package nbd

import (
	"fmt"
	"io"
	"sync"

	"github.com/tomato42/fsresck/errs"
	"github.com/tomato42/fsresck/internal/encoding"
)

// responseHeaderSize is the size of the fixed ">IIQ" response header:
// magic(4) + error(4) + handle(8).
const responseHeaderSize = 4 + 4 + 8

// Response is one NBD server response.
type Response struct {
	Error  ErrorCode
	Handle uint64
	Data   []byte // populated only for a response to a READ request
}

// Encode writes resp to w in wire format. hasPayload must be true iff
// this response answers a READ request (the payload is not
// self-describing on the wire — see ResponseCodec).
func (resp Response) Encode(w io.Writer, hasPayload bool) error {
	buf := make([]byte, responseHeaderSize)
	encoding.EncodeFixed32BE(buf[0:4], ResponseMagic)
	encoding.EncodeFixed32BE(buf[4:8], uint32(resp.Error))
	encoding.EncodeFixed64BE(buf[8:16], resp.Handle)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("nbd: write response header: %w", err)
	}
	if hasPayload {
		if _, err := w.Write(resp.Data); err != nil {
			return fmt.Errorf("nbd: write response payload: %w", err)
		}
	}
	return nil
}

// ResponseCodec decodes NBD responses. Because a response frame doesn't
// say for itself whether it carries a trailing payload — only a response
// to a READ request does — the codec needs to know, per in-flight
// handle, how many payload bytes to expect. The request side registers
// that expectation with ExpectRead when it sends a READ; Recv consults
// and clears it when the matching response arrives.
//
// ResponseCodec is safe for concurrent use: in a real NBD client the
// request-sending goroutine and the response-receiving goroutine are
// typically different goroutines sharing one connection.
type ResponseCodec struct {
	mu       sync.Mutex
	expected map[uint64]int
}

// NewResponseCodec returns a ready ResponseCodec.
func NewResponseCodec() *ResponseCodec {
	return &ResponseCodec{expected: make(map[uint64]int)}
}

// ExpectRead registers that a response for handle, once it arrives, will
// carry length bytes of READ payload.
func (rc *ResponseCodec) ExpectRead(handle uint64, length int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.expected[handle] = length
}

// Recv reads one Response from r, consuming a trailing payload if handle
// was previously registered via ExpectRead.
//
// A response whose handle was never registered (via ExpectRead) and
// whose Error is zero is accepted as a payload-less response (the normal
// case for WRITE/DISC/FLUSH/TRIM); a handle with no outstanding READ is
// not an error.
func (rc *ResponseCodec) Recv(r io.Reader) (Response, error) {
	buf := make([]byte, responseHeaderSize)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF && n == 0 {
		return Response{}, io.EOF
	}
	if err != nil {
		return Response{}, fmt.Errorf("nbd: short response header: %w", errs.TruncatedFile)
	}

	magic := encoding.DecodeFixed32BE(buf[0:4])
	if magic != ResponseMagic {
		return Response{}, fmt.Errorf("nbd: response magic %#x: %w", magic, errs.ProtocolMagic)
	}

	resp := Response{
		Error:  ErrorCode(encoding.DecodeFixed32BE(buf[4:8])),
		Handle: encoding.DecodeFixed64BE(buf[8:16]),
	}

	rc.mu.Lock()
	length, ok := rc.expected[resp.Handle]
	if ok {
		delete(rc.expected, resp.Handle)
	}
	rc.mu.Unlock()

	if ok && resp.Error == 0 {
		resp.Data = make([]byte, length)
		if _, err := io.ReadFull(r, resp.Data); err != nil {
			return Response{}, fmt.Errorf("nbd: short response payload: %w", errs.TruncatedFile)
		}
	}

	return resp, nil
}
