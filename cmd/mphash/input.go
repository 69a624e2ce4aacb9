package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/tamirms/mphash"
)

// maxLineSize bounds a single key file line.
const maxLineSize = 1 << 20

// openInput opens path for reading; "-" is standard input.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	return f, nil
}

// scanLines calls fn for every non-blank line of r with the line ending
// (LF or CRLF) removed. The slice passed to fn is only valid during the
// call.
func scanLines(r io.Reader, fn func(lineNo int, line []byte)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSuffix(sc.Bytes(), []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		fn(lineNo, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read key file line %d: %w", lineNo+1, err)
	}
	return nil
}

// readKeys reads one key per line.
func readKeys(r io.Reader) ([][]byte, error) {
	var keys [][]byte
	err := scanLines(r, func(_ int, line []byte) {
		keys = append(keys, bytes.Clone(line))
	})
	return keys, err
}

// readPairs reads `key value` lines. The key ends at the first space or
// tab; the value is the rest of the line after that run of blanks and may
// itself contain blanks. A line without blanks has an empty value.
func readPairs(r io.Reader) ([]mphash.Pair, error) {
	var pairs []mphash.Pair
	err := scanLines(r, func(_ int, line []byte) {
		key, value := line, []byte(nil)
		if i := bytes.IndexAny(line, " \t"); i >= 0 {
			key = line[:i]
			value = bytes.TrimLeft(line[i:], " \t")
		}
		pairs = append(pairs, mphash.Pair{Key: bytes.Clone(key), Value: bytes.Clone(value)})
	})
	return pairs, err
}
