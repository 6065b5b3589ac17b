// Package sequence reads genome files and provides the distance measures the
// index compares genomes with.
package sequence

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var (
	// ErrSequenceTooShort is returned when a sequence is shorter than the k-mer size.
	ErrSequenceTooShort = errors.New("sequence shorter than k-mer size")

	// ErrEmptySequence is returned when a file holds no sequence data.
	ErrEmptySequence = errors.New("empty sequence")
)

// IsSupportedGenome checks if a file is a supported FASTA genome file
func IsSupportedGenome(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	switch filepath.Ext(name) {
	case ".fna", ".fa", ".fasta", ".ffn", ".fnn":
		return true
	default:
		return false
	}
}

// ReadFile reads the sequence stored in a FASTA file, gzip compressed or not
func ReadFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	seq, err := ReadFASTA(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return seq, nil
}

// ReadFASTA concatenates the sequence lines of a FASTA stream. Header lines
// (starting with '>') and comment lines (';') are dropped, bases are
// upper-cased and whitespace is removed.
func ReadFASTA(r io.Reader) ([]byte, error) {
	var seq []byte
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '>' || line[0] == ';' {
			continue
		}
		for _, c := range line {
			if c == ' ' || c == '\t' {
				continue
			}
			if 'a' <= c && c <= 'z' {
				c -= 'a' - 'A'
			}
			seq = append(seq, c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}
	return seq, nil
}

// Label derives a display label from a genome path: the name of the folder
// holding the file, which the importer names after the organism.
func Label(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "." || dir == string(filepath.Separator) || dir == "" {
		return filepath.Base(path)
	}
	return dir
}
