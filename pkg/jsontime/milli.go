// Package jsontime provides a time type that travels as Unix milliseconds,
// the unit used in saved image names.
package jsontime

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Milli is a time.Time that serializes as Unix milliseconds in JSON and
// msgpack.
type Milli time.Time

// UnixMilli returns the Milli for ms milliseconds since the epoch.
func UnixMilli(ms int64) Milli {
	return Milli(time.UnixMilli(ms))
}

// Now returns the current time truncated to milliseconds.
func Now() Milli {
	return Milli(time.Now().Truncate(time.Millisecond))
}

// Time returns the underlying time.Time value.
func (m Milli) Time() time.Time {
	return time.Time(m)
}

// Millis returns m as Unix milliseconds.
func (m Milli) Millis() int64 {
	return time.Time(m).UnixMilli()
}

// IsZero reports whether m is the zero time.
func (m Milli) IsZero() bool {
	return time.Time(m).IsZero()
}

// Equal reports whether m and t are the same instant.
func (m Milli) Equal(t Milli) bool {
	return time.Time(m).Equal(time.Time(t))
}

// Format formats m in the local zone.
func (m Milli) Format(layout string) string {
	return time.Time(m).Local().Format(layout)
}

func (m Milli) String() string {
	return strconv.FormatInt(m.Millis(), 10)
}

// MarshalJSON implements json.Marshaler.
func (m Milli) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, m.Millis(), 10), nil
}

// UnmarshalJSON accepts a number or a quoted number. null leaves m
// unchanged.
func (m *Milli) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	b = bytes.Trim(b, `"`)
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*m = UnixMilli(ms)
	return nil
}

var (
	_ msgpack.CustomEncoder = Milli{}
	_ msgpack.CustomDecoder = (*Milli)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (m Milli) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeInt(m.Millis())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (m *Milli) DecodeMsgpack(dec *msgpack.Decoder) error {
	ms, err := dec.DecodeInt64()
	if err != nil {
		return err
	}
	*m = UnixMilli(ms)
	return nil
}
