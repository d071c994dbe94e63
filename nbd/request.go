package nbd

import (
	"fmt"
	"io"

	"github.com/tomato42/fsresck/errs"
	"github.com/tomato42/fsresck/internal/encoding"
)

// requestHeaderSize is the size of the fixed ">IIQQI" request header:
// magic(4) + type(4) + handle(8) + offset(8) + length(4).
const requestHeaderSize = 4 + 4 + 8 + 8 + 4

// Request is one NBD client request.
type Request struct {
	Type   RequestType
	Handle uint64
	Offset uint64
	Length uint32
	Data   []byte // populated only when Type == Write
}

// Encode writes req to w in wire format.
func (req Request) Encode(w io.Writer) error {
	buf := make([]byte, requestHeaderSize)
	encoding.EncodeFixed32BE(buf[0:4], RequestMagic)
	encoding.EncodeFixed32BE(buf[4:8], uint32(req.Type))
	encoding.EncodeFixed64BE(buf[8:16], req.Handle)
	encoding.EncodeFixed64BE(buf[16:24], req.Offset)
	encoding.EncodeFixed32BE(buf[24:28], req.Length)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("nbd: write request header: %w", err)
	}
	if req.Type == Write {
		if _, err := w.Write(req.Data); err != nil {
			return fmt.Errorf("nbd: write request payload: %w", err)
		}
	}
	return nil
}

// DecodeRequest reads one Request from r.
//
// A clean EOF before any bytes are read propagates as io.EOF (the
// connection was closed between requests, which is a normal way for an
// NBD session to end). Any other short read is errs.TruncatedFile. A
// magic mismatch is errs.ProtocolMagic.
func DecodeRequest(r io.Reader) (Request, error) {
	buf := make([]byte, requestHeaderSize)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF && n == 0 {
		return Request{}, io.EOF
	}
	if err != nil {
		return Request{}, fmt.Errorf("nbd: short request header: %w", errs.TruncatedFile)
	}

	magic := encoding.DecodeFixed32BE(buf[0:4])
	if magic != RequestMagic {
		return Request{}, fmt.Errorf("nbd: request magic %#x: %w", magic, errs.ProtocolMagic)
	}

	req := Request{
		Type:   RequestType(encoding.DecodeFixed32BE(buf[4:8])),
		Handle: encoding.DecodeFixed64BE(buf[8:16]),
		Offset: encoding.DecodeFixed64BE(buf[16:24]),
		Length: encoding.DecodeFixed32BE(buf[24:28]),
	}

	if req.Type == Write {
		req.Data = make([]byte, req.Length)
		if _, err := io.ReadFull(r, req.Data); err != nil {
			return Request{}, fmt.Errorf("nbd: short request payload: %w", errs.TruncatedFile)
		}
	}

	return req, nil
}
