package scale

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Write encodes s as a little-endian float64 log-magnitude followed by an
// int32 sign.
func (s Scale) Write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, s.logNum); err != nil {
		return errors.Wrap(err, "write scale log magnitude")
	}
	if err := binary.Write(w, binary.LittleEndian, int32(s.sign)); err != nil {
		return errors.Wrap(err, "write scale sign")
	}
	return nil
}

// Read decodes a Scale written by Write.
func Read(r io.Reader) (Scale, error) {
	var (
		logNum float64
		sign   int32
	)
	if err := binary.Read(r, binary.LittleEndian, &logNum); err != nil {
		return Scale{}, errors.Wrap(err, "read scale log magnitude")
	}
	if err := binary.Read(r, binary.LittleEndian, &sign); err != nil {
		return Scale{}, errors.Wrap(err, "read scale sign")
	}
	if sign < -1 || sign > 1 {
		return Scale{}, errors.Errorf("invalid scale sign %d", sign)
	}
	return Scale{logNum: logNum, sign: int(sign)}, nil
}
