package util

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestFormatDate(t *testing.T) {
	got := FormatDate(time.Date(2026, time.July, 4, 23, 0, 0, 0, time.UTC))
	if got != "2026-07-04" {
		t.Errorf("FormatDate: got %q", got)
	}
}

func TestParseMonths(t *testing.T) {
	cases := []struct {
		in   string
		want []int
	}{
		{"6,7,8", []int{6, 7, 8}},
		{"jun, Jul ,aug", []int{6, 7, 8}},
		{"12,1", []int{12, 1}},
		{"7,july,7", []int{7}},
		{"sept", []int{9}},
	}
	for _, c := range cases {
		got, err := ParseMonths(c.in)
		if err != nil {
			t.Errorf("ParseMonths(%q): %v", c.in, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ParseMonths(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseMonthsRejects(t *testing.T) {
	for _, in := range []string{"", " , ", "0", "13", "juneish"} {
		if _, err := ParseMonths(in); err == nil {
			t.Errorf("ParseMonths(%q): expected error", in)
		}
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": "x1", "b": 42, "c": null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != "x1" || v.B != "42" || v.C != "" {
		t.Errorf("unexpected values: %+v", v)
	}
}

func TestForEachMemberKeepsOrder(t *testing.T) {
	var keys []string
	err := ForEachMember([]byte(`{"9": 1, "10": {"x": [1,2]}, "2": "s"}`), func(key string, raw []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(keys, ",") != "9,10,2" {
		t.Errorf("order lost: %v", keys)
	}
}

func TestForEachMemberNullAndErrors(t *testing.T) {
	calls := 0
	if err := ForEachMember([]byte(`null`), func(string, []byte) error { calls++; return nil }); err != nil || calls != 0 {
		t.Errorf("null: calls=%d err=%v", calls, err)
	}
	if err := ForEachMember([]byte(`[1,2]`), func(string, []byte) error { return nil }); err == nil {
		t.Error("expected error for array")
	}
	stop := errors.New("stop")
	if err := ForEachMember([]byte(`{"a": 1, "b": 2}`), func(string, []byte) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestMultiError(t *testing.T) {
	var m MultiError
	m.Add(nil)
	if m.Err() != nil {
		t.Fatal("expected nil with nothing added")
	}
	m.Add(errors.New("first"))
	m.Add(errors.New("second"))
	err := m.Err()
	if err == nil || err.Error() != "first; second" {
		t.Errorf("unexpected error: %v", err)
	}
}
