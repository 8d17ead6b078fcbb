package lineprotocol

import (
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
)

// Validate decodes line with the reference line-protocol decoder and returns
// the first decode error, or nil when the line parses cleanly. The decoder
// is used read-only: the hand-assembled line is the wire payload, the
// decoder only confirms the backend will accept its shape.
func Validate(line string) error {
	dec := lineprotocol.NewDecoderWithBytes([]byte(line))
	for dec.Next() {
		if _, err := dec.Measurement(); err != nil {
			return err
		}
		for {
			key, _, err := dec.NextTag()
			if err != nil {
				return err
			}
			if key == nil {
				break
			}
		}
		for {
			key, _, err := dec.NextField()
			if err != nil {
				return err
			}
			if key == nil {
				break
			}
		}
		if _, err := dec.Time(lineprotocol.Second, time.Time{}); err != nil {
			return err
		}
	}
	return dec.Err()
}
