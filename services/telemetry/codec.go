package telemetry

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"

	"irqdemo-go/errcode"
)

// Codec turns records into self-delimiting frames and back.
type Codec interface {
	Name() string
	Encode(r Record) ([]byte, error)
	NewDecoder(r io.Reader) Decoder
}

// Decoder reads records from a stream of concatenated frames. A frame that
// cannot be decoded yields an errcode.InvalidPayload error and decoding may
// continue; io.EOF ends the stream; any other error is fatal.
type Decoder interface {
	Decode(r *Record) error
}

func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "cbor":
		return NewCBOR()
	}
	return nil, &errcode.E{C: errcode.InvalidConfig, Op: "telemetry.CodecByName", Msg: "unknown codec " + name}
}

// JSON frames are compact objects written back to back, no separator.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Encode(r Record) ([]byte, error) { return json.Marshal(r) }

func (JSON) NewDecoder(r io.Reader) Decoder {
	return &jsonDecoder{br: bufio.NewReader(r)}
}

// maxJSONFrame bounds a single object; anything longer is garbage.
const maxJSONFrame = 512

type jsonDecoder struct {
	br  *bufio.Reader
	buf []byte
}

func corrupt(op string, err error) error {
	return &errcode.E{C: errcode.InvalidPayload, Op: op, Err: err}
}

func (d *jsonDecoder) Decode(r *Record) error {
	// Resync on the next '{'. Skipped non-space bytes are reported first.
	skipped := false
	for {
		c, err := d.br.ReadByte()
		if err != nil {
			if skipped && err == io.EOF {
				return corrupt("telemetry.json", errors.New("trailing garbage"))
			}
			return err
		}
		if c == '{' {
			if skipped {
				_ = d.br.UnreadByte()
				return corrupt("telemetry.json", errors.New("garbage before record"))
			}
			break
		}
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			skipped = true
		}
	}

	d.buf = append(d.buf[:0], '{')
	depth, inStr, esc := 1, false, false
	for depth > 0 {
		c, err := d.br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return corrupt("telemetry.json", io.ErrUnexpectedEOF)
			}
			return err
		}
		d.buf = append(d.buf, c)
		if len(d.buf) > maxJSONFrame {
			return corrupt("telemetry.json", errors.New("frame too long"))
		}
		switch {
		case esc:
			esc = false
		case inStr && c == '\\':
			esc = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '{':
			depth++
		case c == '}':
			depth--
		}
	}

	var rec Record
	if err := json.Unmarshal(d.buf, &rec); err != nil {
		return corrupt("telemetry.json", err)
	}
	*r = rec
	return nil
}

// CBOR frames are one CBOR map per record, keyed like the JSON fields.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBOR() (CBOR, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dec, err := cbor.DecOptions{MaxNestedLevels: 4}.DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: enc, dec: dec}, nil
}

func (CBOR) Name() string { return "cbor" }

func (c CBOR) Encode(r Record) ([]byte, error) { return c.enc.Marshal(r) }

func (c CBOR) NewDecoder(r io.Reader) Decoder {
	return &cborDecoder{dec: c.dec.NewDecoder(r)}
}

type cborDecoder struct {
	dec *cbor.Decoder
	err error
}

func (d *cborDecoder) Decode(r *Record) error {
	if d.err != nil {
		return d.err
	}
	var rec Record
	err := d.dec.Decode(&rec)
	if err == nil {
		*r = rec
		return nil
	}
	// A well-formed item of the wrong shape was consumed whole; a
	// malformed one leaves the stream position unknown.
	var ute *cbor.UnmarshalTypeError
	if errors.As(err, &ute) {
		return corrupt("telemetry.cbor", err)
	}
	if err == io.EOF {
		return err
	}
	d.err = errcode.Wrap(errcode.Error, "telemetry.cbor", err)
	return d.err
}
