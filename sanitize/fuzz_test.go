package sanitize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"scrub/core"
)

func FuzzSanitizeBytes(f *testing.F) {
	seedCases := [][]byte{
		[]byte(``),
		[]byte(`{}`),
		[]byte(`null`),
		[]byte(`{"a": 1}`),
		[]byte(`{"event":{"type":"login","user":"test"}}`),
		[]byte(`{"nested":{"deep":{"value":123}}}`),
		[]byte(`{"array":[1,2,3]}`),
		[]byte(`{"password":"hunter2"}`),
		[]byte(`{"msg":"<script>alert(1)</script>"}`),
		[]byte(`{"broken": `),
		{0x80},
		{0xff, 0xfe, 0xfd},
	}

	for _, seed := range seedCases {
		f.Add(seed)
	}

	s, err := New(Options{})
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1024*1024 {
			return
		}

		result, err := s.Bytes(data)
		if err != nil {
			// Every rejection must come from the taxonomy
			if !errors.Is(err, core.ErrMalformed) && !errors.Is(err, core.ErrDecode) {
				t.Fatalf("error outside taxonomy for input %.100q: %v", data, err)
			}
			return
		}

		if result == nil {
			t.Fatalf("nil result without error for input %.100q", data)
		}
		if _, err := json.Marshal(result.Value); err != nil {
			t.Fatalf("sanitized value does not re-marshal for input %.100q: %v", data, err)
		}
	})
}

func FuzzSanitizeString(f *testing.F) {
	seedCases := []string{
		``,
		`{}`,
		`{"a": 1}`,
		`{"token": "abc", "msg": "<b>hi</b>"}`,
		`[1, [2, [3, [4]]]]`,
		`"just a string"`,
		`{"broken": `,
		string([]byte{0x80}),
	}

	for _, seed := range seedCases {
		f.Add(seed)
	}

	s, err := New(Options{})
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		if len(raw) > 1024*1024 {
			return
		}

		// Mirror the harness's lossy pre-decode: the string path is defined
		// over well-formed text.
		text := strings.ToValidUTF8(raw, "")

		result, err := s.String(text)
		if err != nil {
			// Decode errors are impossible after lossy decoding
			if errors.Is(err, core.ErrDecode) {
				t.Fatalf("decode error on the string path for input %.100q", raw)
			}
			if !errors.Is(err, core.ErrMalformed) {
				t.Fatalf("error outside taxonomy for input %.100q: %v", raw, err)
			}
			return
		}

		if result == nil {
			t.Fatalf("nil result without error for input %.100q", raw)
		}
		if _, err := json.Marshal(result.Value); err != nil {
			t.Fatalf("sanitized value does not re-marshal for input %.100q: %v", raw, err)
		}
	})
}
