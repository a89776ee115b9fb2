package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single entry when reading a partition back.
const maxLineSize = 4 * 1024 * 1024

// canonicalize re-encodes v so that equal entries always produce identical
// bytes: object keys sorted, numbers kept verbatim.
func canonicalize(v any) (map[string]any, []byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return decodeCanonical(raw)
}

func decodeCanonical(raw []byte) (map[string]any, []byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, errors.New("entry is not a JSON object")
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return m, out, nil
}

// chainHash links an entry to its predecessor.
func chainHash(prevHash string, canonical []byte) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

// sealEntry sets prev_hash, computes hash and returns the encoded line
// without its trailing newline.
func sealEntry(entry map[string]any, prevHash string) (line []byte, hash string, err error) {
	entry[FieldPrevHash] = prevHash
	delete(entry, FieldHash)

	m, canonical, err := canonicalize(entry)
	if err != nil {
		return nil, "", err
	}

	hash = chainHash(prevHash, canonical)
	m[FieldHash] = hash
	line, err = json.Marshal(m)
	if err != nil {
		return nil, "", err
	}
	return line, hash, nil
}

// lastHash returns the hash of the final entry in path, or "" for a missing
// or empty file.
func lastHash(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	var last []byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		if line := bytes.TrimSpace(sc.Bytes()); len(line) > 0 {
			last = append(last[:0], line...)
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if last == nil {
		return "", nil
	}

	var tail struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(last, &tail); err != nil {
		return "", fmt.Errorf("last entry is not valid JSON: %w", err)
	}
	return tail.Hash, nil
}

// VerifyResult is the outcome of checking one partition.
type VerifyResult struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Valid   bool   `json:"valid"`

	// BrokenLine is the 1-based line of the first bad entry, or 0.
	BrokenLine int    `json:"broken_line,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Verify recomputes the hash chain of one partition file. The returned error
// is reserved for I/O failures; a tampered file yields Valid == false.
func Verify(path string) (*VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: "read", Path: path, Cause: err}
	}
	defer f.Close()

	res, err := verifyReader(f)
	if err != nil {
		return nil, &Error{Op: "read", Path: path, Cause: err}
	}
	res.Path = path
	return res, nil
}

func verifyReader(r io.Reader) (*VerifyResult, error) {
	res := &VerifyResult{Valid: true}
	prev := ""
	lineNo := 0

	broken := func(reason string) *VerifyResult {
		res.Valid = false
		res.BrokenLine = lineNo
		res.Reason = reason
		return res
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		m, _, err := decodeCanonical(line)
		if err != nil {
			return broken("invalid JSON: " + err.Error()), nil
		}

		stored, _ := m[FieldHash].(string)
		if stored == "" {
			return broken("missing hash"), nil
		}
		if got, _ := m[FieldPrevHash].(string); got != prev {
			return broken("prev_hash does not match the previous entry"), nil
		}

		delete(m, FieldHash)
		canonical, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		if chainHash(prev, canonical) != stored {
			return broken("hash mismatch"), nil
		}

		prev = stored
		res.Entries++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
