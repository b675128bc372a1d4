package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"objmodel/pkg/vm"
)

func runLines(t *testing.T, lines ...string) string {
	t.Helper()
	e, err := vm.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	sh := newShell(e, &out)
	defer sh.close()
	for _, line := range lines {
		if err := sh.exec(line); err != nil {
			t.Fatalf("%q: %v", line, err)
		}
	}
	return out.String()
}

func TestTokenize(t *testing.T) {
	got, err := tokenize(`set o "a key" "say \"hi\""  3`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"set", "o", `"a key"`, `"say \"hi\""`, "3"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("tokens = %q", got)
	}
	if _, err := tokenize(`str s "open`); err == nil {
		t.Errorf("expected an unterminated string error")
	}
}

func TestObjectCommands(t *testing.T) {
	out := runLines(t,
		"obj o",
		`set o name "box"`,
		"set o 2 true",
		"get o name",
		"keys o",
		"del o name",
		"keys o",
	)
	want := "\"box\"\n[2, name]\ntrue\n[2]\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestArrayCommands(t *testing.T) {
	out := runLines(t,
		"arr a",
		"push a 3 1 2",
		"sort a",
		"get a 0",
		"get a length",
		"freeze a",
		"set a 0 9",
		"get a 0",
	)
	want := "length 3\n1\n3\nrejected\n1\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestMapCommands(t *testing.T) {
	out := runLines(t,
		"map m",
		`set m "a" 1`,
		"set m 0 2",
		"set m -0 3",
		"keys m",
		`get m "a"`,
		`del m "a"`,
		`get m "a"`,
	)
	want := "[\"a\" => 1, 0 => 3]\n1\ntrue\nundefined\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestDropAndCollect(t *testing.T) {
	out := runLines(t,
		"obj keep",
		"obj gone",
		"drop gone",
		"gc",
	)
	if out != "freed 1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestConcatCommand(t *testing.T) {
	out := runLines(t, `str a "abc"`, `cat b @a "def"`)
	if !strings.HasPrefix(out, `"abcdef" (length 6`) {
		t.Errorf("output = %q", out)
	}
}

func TestSearchAndEncode(t *testing.T) {
	out := runLines(t,
		`str s "a\U0001F600b12"`,
		`search s "\\d+"`,
		`search s "z"`,
		`str ab "ab"`,
		"utf16 ab",
	)
	want := "4\n-1\n61 00 62 00\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestLoadUTF16File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text")
	if err := os.WriteFile(path, []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	out := runLines(t, "load s "+strconv.Quote(path), "utf16 s")
	if out != "length 2\n68 00 69 00\n" {
		t.Errorf("output = %q", out)
	}
}

func TestErrors(t *testing.T) {
	e, _ := vm.New(nil)
	sh := newShell(e, &bytes.Buffer{})
	for _, line := range []string{"bogus", "get", "get nothing x", "str s 12", "set o k @missing"} {
		if err := sh.exec(line); err == nil {
			t.Errorf("%q: expected an error", line)
		}
	}
}

func TestRequestEvery(t *testing.T) {
	e, _ := vm.New(nil)
	stop := requestEvery(e, time.Millisecond)
	defer stop()
	deadline := time.Now().Add(2 * time.Second)
	for !e.SafePoint() {
		if time.Now().After(deadline) {
			t.Fatal("no collection was requested")
		}
		time.Sleep(time.Millisecond)
	}
}
