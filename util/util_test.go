// util/util_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestMapFilterSlice(t *testing.T) {
	in := []int{1, 2, 3, 4, 5}
	if got := FilterSlice(in, func(v int) bool { return v%2 == 1 }); !slices.Equal(got, []int{1, 3, 5}) {
		t.Errorf("FilterSlice: got %v", got)
	}
	if got := MapSlice(in, func(v int) string { return strings.Repeat("x", v) }); len(got) != 5 || got[2] != "xxx" {
		t.Errorf("MapSlice: got %v", got)
	}
	if got := MapSlice[int, int](nil, func(v int) int { return v }); got != nil {
		t.Errorf("MapSlice(nil): got %v", got)
	}
}

func TestUnmarshalJSONErrors(t *testing.T) {
	type rec struct {
		Ident string `json:"ident"`
		Alt   int    `json:"alt"`
	}

	var r rec
	if err := UnmarshalJSON(strings.NewReader(`{"ident": "KSFO", "alt": 12}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.Ident != "KSFO" || r.Alt != 12 {
		t.Errorf("got %+v", r)
	}

	err := UnmarshalJSONBytes([]byte("{\n  \"ident\": \"KSFO\",\n  \"alt\": \"high\"\n}"), &r)
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("expected type error on line 3, got %v", err)
	}

	err = UnmarshalJSONBytes([]byte("{\n\"ident\": }"), &r)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected syntax error on line 2, got %v", err)
	}
}

func TestErrorLogger(t *testing.T) {
	var e ErrorLogger
	if e.HaveErrors() || e.Err() != nil {
		t.Fatal("fresh ErrorLogger reports errors")
	}

	e.Push("airports.csv")
	e.Push("row 12")
	e.ErrorString("bad latitude %q", "N99")
	e.Pop()
	e.Pop()
	e.ErrorString("top level")

	if !e.HaveErrors() || len(e.Errors()) != 2 {
		t.Fatalf("got errors %v", e.Errors())
	}
	if e.Errors()[0] != `airports.csv / row 12: bad latitude "N99"` {
		t.Errorf("got %q", e.Errors()[0])
	}
	if e.Errors()[1] != "top level" {
		t.Errorf("got %q", e.Errors()[1])
	}
	if err := e.Err(); err == nil || !strings.Contains(err.Error(), "row 12") {
		t.Errorf("Err: got %v", err)
	}
}

func TestErrorLoggerCheckDepth(t *testing.T) {
	var e ErrorLogger
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on unbalanced Push")
		}
	}()
	func() {
		defer e.CheckDepth(e.CurrentDepth())
		e.Push("unbalanced")
	}()
}

func TestCacheRoundTrip(t *testing.T) {
	CacheDir = t.TempDir()
	defer func() { CacheDir = "" }()

	type snapshot struct {
		Idents []string
		Count  int
	}
	in := snapshot{Idents: []string{"KSFO", "KOAK"}, Count: 2}
	if err := CacheStoreObject("db/snapshot.msgpack", in); err != nil {
		t.Fatal(err)
	}

	var out snapshot
	mod, err := CacheRetrieveObject("db/snapshot.msgpack", &out)
	if err != nil {
		t.Fatal(err)
	}
	if mod.IsZero() {
		t.Errorf("zero modification time")
	}
	if !slices.Equal(out.Idents, in.Idents) || out.Count != in.Count {
		t.Errorf("got %+v, expected %+v", out, in)
	}

	if _, err := CacheRetrieveObject("db/missing", &out); err == nil {
		t.Errorf("expected error for missing object")
	}
}

func TestOpenResource(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "fixes.csv")
	if err := os.WriteFile(plain, []byte("ident,lat,lon\n"), 0644); err != nil {
		t.Fatal(err)
	}
	b, err := ReadResource(plain)
	if err != nil || string(b) != "ident,lat,lon\n" {
		t.Errorf("plain: got %q, %v", b, err)
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write([]byte("ident,type\nBOS,VOR\n"))
	zw.Close()
	if err := os.WriteFile(filepath.Join(dir, "navaids.csv.zst"), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	// Asking for the uncompressed name finds the .zst.
	b, err = ReadResource(filepath.Join(dir, "navaids.csv"))
	if err != nil || string(b) != "ident,type\nBOS,VOR\n" {
		t.Errorf("zst: got %q, %v", b, err)
	}

	if _, err := OpenResource(filepath.Join(dir, "airways.csv")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
