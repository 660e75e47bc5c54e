package jsontime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func TestMilliMarshalJSON(t *testing.T) {
	m := Milli(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC))
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1700000000000" {
		t.Errorf("MarshalJSON = %s", data)
	}
}

func TestMilliUnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1700000000000", 1700000000000},
		{`"1700000001000"`, 1700000001000},
		{"0", 0},
	}
	for _, tt := range tests {
		var m Milli
		if err := json.Unmarshal([]byte(tt.in), &m); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if m.Millis() != tt.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, m.Millis(), tt.want)
		}
	}

	var m Milli
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Error("expected error for non-numeric input")
	}
}

func TestMilliPointerNull(t *testing.T) {
	var v struct {
		TS *Milli `json:"timestamp"`
	}
	if err := json.Unmarshal([]byte(`{"timestamp":null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.TS != nil {
		t.Errorf("TS = %v, want nil", v.TS)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"timestamp":null}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestMilliMsgpack(t *testing.T) {
	type record struct {
		Name      string `msgpack:"name"`
		CreatedAt Milli  `msgpack:"created_at"`
	}
	in := record{Name: "img_1700000000000_0.png", CreatedAt: UnixMilli(1700000000000)}
	data, err := msgpack.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out record
	if err := msgpack.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != in.Name || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestNowTruncated(t *testing.T) {
	if ns := Now().Time().Nanosecond(); ns%int(time.Millisecond) != 0 {
		t.Errorf("Now has sub-millisecond precision: %d", ns)
	}
}
