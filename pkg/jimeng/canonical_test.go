package jimeng

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

var testTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func testCanonical(body string) *CanonicalRequest {
	return BuildCanonical("POST", "/api/v3/images/generations",
		url.Values{"Version": {"2024-01-01"}, "Action": {"Gen"}},
		map[string]string{
			"Content-Type": "application/json",
			"Host":         "ark.cn-beijing.volces.com",
		},
		[]byte(body), testTime)
}

func TestBuildCanonical(t *testing.T) {
	c := testCanonical(`{"prompt":"cat"}`)

	const payload = "67c3aa923cd483dc6d2b7f6a4d9075ca176e992cc01ceaa0fc30df16a026ff45"
	want := strings.Join([]string{
		"POST",
		"/api/v3/images/generations",
		"Action=Gen&Version=2024-01-01",
		"content-type:application/json\n" +
			"host:ark.cn-beijing.volces.com\n" +
			"x-content-sha256:" + payload + "\n" +
			"x-date:20240102T030405Z\n",
		"content-type;host;x-content-sha256;x-date",
		payload,
	}, "\n")

	if got := c.String(); got != want {
		t.Errorf("canonical mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
	if c.Date() != "20240102T030405Z" {
		t.Errorf("Date = %s", c.Date())
	}
}

func TestBuildCanonicalDeterministic(t *testing.T) {
	a := testCanonical(`{"prompt":"cat"}`).String()
	b := testCanonical(`{"prompt":"cat"}`).String()
	if a != b {
		t.Fatal("same inputs produced different canonical requests")
	}
	if c := testCanonical(`{"prompt":"dog"}`).String(); c == a {
		t.Fatal("different bodies produced the same canonical request")
	}
}

func TestBuildCanonicalLocalTime(t *testing.T) {
	local := testTime.In(time.FixedZone("CST", 8*3600))
	c := BuildCanonical("post", "", nil, nil, nil, local)
	if c.Date() != "20240102T030405Z" {
		t.Errorf("Date = %s, want UTC", c.Date())
	}
	if c.Method != "POST" || c.Path != "/" || c.Query != "" {
		t.Errorf("unexpected canonical: %+v", c)
	}
	// sha256 of the empty body
	if c.PayloadHash != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("PayloadHash = %s", c.PayloadHash)
	}
}

func TestCanonicalQuery(t *testing.T) {
	tests := []struct {
		in   url.Values
		want string
	}{
		{nil, ""},
		{url.Values{"b": {"2"}, "a": {"1"}}, "a=1&b=2"},
		{url.Values{"k": {"z", "a"}}, "k=a&k=z"},
		{url.Values{"q": {"a b"}}, "q=a%20b"},
		{url.Values{"e": nil}, "e="},
	}
	for _, tt := range tests {
		if got := CanonicalQuery(tt.in); got != tt.want {
			t.Errorf("CanonicalQuery(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
