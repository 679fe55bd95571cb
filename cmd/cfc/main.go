package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cfuncs/cfc"
)

// jsonString escapes s per the output contract: the two-char escapes for
// backslash, quote and the control characters that have them, \u00XX for
// the rest below 0x20, every other byte verbatim. Identifiers are plain
// ASCII for valid C, but paths can carry arbitrary bytes.
func jsonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func jsonArray(names []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(jsonString(name))
	}
	b.WriteByte(']')
	return b.String()
}

func jsonRecord(path string, names []string) string {
	return `{"path":` + jsonString(path) + `,"fc":` + jsonArray(names) + `}`
}

// processFile extracts and emits one file. An unreadable file still emits
// an empty record so batch streams stay well-formed, and reports rc 2.
func processFile(path string, batch bool) int {
	rc := 0
	var names []string
	if buf, err := os.ReadFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot open file: %s\n", path)
		rc = 2
	} else {
		names = cfc.Extract(buf)
	}
	if batch {
		fmt.Println(jsonRecord(path, names))
	} else {
		fmt.Println(jsonArray(names))
	}
	return rc
}

// collectCFiles walks dir recursively and returns every .c file under it
// in lexical path order.
func collectCFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".c") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// expandArgs replaces directory arguments with the .c files they contain.
func expandArgs(args []string) ([]string, int) {
	rc := 0
	var out []string
	for _, arg := range args {
		if st, err := os.Stat(arg); err == nil && st.IsDir() {
			files, err := collectCFiles(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: cannot read directory: %s\n", arg)
				rc = 2
				continue
			}
			out = append(out, files...)
			continue
		}
		out = append(out, arg)
	}
	return out, rc
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cfc [--batch] <file.c> [file2.c ...]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	batch := false
	args := os.Args[1:]
	if args[0] == "--batch" {
		batch = true
		args = args[1:]
	}
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	rc := 0
	if batch {
		var expandRC int
		args, expandRC = expandArgs(args)
		if expandRC != 0 {
			rc = expandRC
		}
	}
	for _, arg := range args {
		if fileRC := processFile(arg, batch); fileRC != 0 {
			rc = fileRC
		}
	}
	os.Exit(rc)
}
