package crypto

import (
	"bytes"
	"testing"
)

func TestCanonicalizeJSON_SortsKeysAndStripsWhitespace(t *testing.T) {
	input := []byte(`{
		"zeta": 1,
		"alpha": {"b": true, "a": null},
		"mid": [1, "two", false]
	}`)
	expected := `{"alpha":{"a":null,"b":true},"mid":[1,"two",false],"zeta":1}`

	actual, err := CanonicalizeJSON(input)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(actual) != expected {
		t.Fatalf("canonical form mismatch:\n got %s\nwant %s", actual, expected)
	}
}

func TestCanonicalizeJSON_KeyOrderIndependent(t *testing.T) {
	a := []byte(`{"taskId":"t1","status":{"state":"completed","final":true}}`)
	b := []byte(`{"status":{"final":true,"state":"completed"},"taskId":"t1"}`)

	ca, err := CanonicalizeJSON(a)
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	cb, err := CanonicalizeJSON(b)
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("canonical forms differ:\n a=%s\n b=%s", ca, cb)
	}
}

func TestCanonicalizeJSON_Numbers(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", `10`, `10`},
		{"negative zero", `-0`, `0`},
		{"trailing zeros", `1.5000`, `1.5`},
		{"exponent collapse", `1e2`, `100`},
		{"small fraction", `0.00099`, `0.00099`},
		{"large magnitude", `1e+21`, `1e+21`},
		{"tiny magnitude", `0.0000001`, `1e-7`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := CanonicalizeJSON([]byte(tc.input))
			if err != nil {
				t.Fatalf("canonicalize %q: %v", tc.input, err)
			}
			if string(actual) != tc.want {
				t.Fatalf("canonicalize %q = %s, want %s", tc.input, actual, tc.want)
			}
		})
	}
}

func TestCanonicalizeJSON_StringEscapes(t *testing.T) {
	actual, err := CanonicalizeJSON([]byte(`{"s":"line\nbreak\tand \u0001 control"}`))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	expected := `{"s":"line\nbreak\tand \u0001 control"}`
	if string(actual) != expected {
		t.Fatalf("escape mismatch:\n got %s\nwant %s", actual, expected)
	}
}

func TestCanonicalizeJSON_RejectsTrailingData(t *testing.T) {
	if _, err := CanonicalizeJSON([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestCanonicalize_GoNumericTypes(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
	}{
		{"int value in map", map[string]any{"n": 1}, `{"n":1}`},
		{"mixed widths", map[string]any{"a": int64(7), "b": uint8(8), "c": float32(1.5)}, `{"a":7,"b":8,"c":1.5}`},
		{"ints in array", []any{1, int32(2), uint(3)}, `[1,2,3]`},
		{"bare int", 42, `42`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := Canonicalize(tc.input)
			if err != nil {
				t.Fatalf("canonicalize %v: %v", tc.input, err)
			}
			if string(actual) != tc.want {
				t.Fatalf("canonicalize %v = %s, want %s", tc.input, actual, tc.want)
			}
		})
	}
}

func TestCanonicalize_StructAndMapAgree(t *testing.T) {
	type status struct {
		State string `json:"state"`
		Final bool   `json:"final"`
	}
	type task struct {
		TaskID string `json:"taskId"`
		Status status `json:"status"`
	}

	fromStruct, err := Canonicalize(task{TaskID: "t1", Status: status{State: "completed", Final: true}})
	if err != nil {
		t.Fatalf("canonicalize struct: %v", err)
	}
	fromMap, err := Canonicalize(map[string]any{
		"status": map[string]any{"final": true, "state": "completed"},
		"taskId": "t1",
	})
	if err != nil {
		t.Fatalf("canonicalize map: %v", err)
	}
	if !bytes.Equal(fromStruct, fromMap) {
		t.Fatalf("struct and map canonical forms differ:\n struct=%s\n map=%s", fromStruct, fromMap)
	}
}
