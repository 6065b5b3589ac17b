// Package ncbi unpacks NCBI Datasets genome archives into a folder of
// organism directories the build command can index.
package ncbi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"phylotree/internal/fileutil"
)

const (
	dataPrefix = "ncbi_dataset/data/"
	reportName = dataPrefix + "assembly_data_report.jsonl"

	// DefaultOrganism names genomes whose report carries no organism name
	DefaultOrganism = "default"
)

// Import describes one unpacked archive
type Import struct {
	Archive  string
	Organism string
	Dir      string   // organism directory the genomes were written to
	Files    []string // genome files written, sorted
}

// ImportArchive extracts every .fna genome of an NCBI dataset archive into
// a new directory below outDir named after the organism. Header lines are
// stripped. When the organism directory already exists a counter is
// appended (Escherichia_coli_1).
func ImportArchive(zipPath, outDir string) (*Import, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	organism := DefaultOrganism
	var genomes []*zip.File
	for _, f := range zr.File {
		switch {
		case f.Name == reportName:
			name, err := readOrganism(f)
			if err != nil {
				return nil, err
			}
			if name != "" {
				organism = name
			}
		case isGenomeEntry(f.Name):
			genomes = append(genomes, f)
		}
	}
	if len(genomes) == 0 {
		return nil, fmt.Errorf("no genomes found in %s", zipPath)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	dirName := fileutil.UniqueName(organism, func(name string) bool {
		_, err := os.Stat(filepath.Join(outDir, name))
		return os.IsNotExist(err)
	})
	dir := filepath.Join(outDir, dirName)
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create organism directory: %w", err)
	}

	imp := &Import{Archive: zipPath, Organism: organism, Dir: dir}
	for _, f := range genomes {
		dest, err := extractGenome(f, outDir, dir)
		if err != nil {
			return nil, err
		}
		imp.Files = append(imp.Files, dest)
	}
	sort.Strings(imp.Files)
	return imp, nil
}

// isGenomeEntry reports whether name is a .fna file directly inside an
// accession directory (ncbi_dataset/data/<accession>/<file>.fna).
func isGenomeEntry(name string) bool {
	if !strings.HasPrefix(name, dataPrefix) || path.Ext(name) != ".fna" {
		return false
	}
	rest := strings.TrimPrefix(name, dataPrefix)
	return strings.Count(rest, "/") == 1
}

// SanitizeOrganism turns an organism name into a directory name.
func SanitizeOrganism(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.NewReplacer(" ", "_", "/", "_").Replace(name)
}

type assemblyReport struct {
	OrganismName string `json:"organismName"`
	Organism     struct {
		OrganismName string `json:"organismName"`
	} `json:"organism"`
}

// readOrganism returns the last organism name in the assembly report.
func readOrganism(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	var organism string
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rep assemblyReport
		if err := json.Unmarshal([]byte(line), &rep); err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		name := rep.Organism.OrganismName
		if name == "" {
			name = rep.OrganismName
		}
		if name = SanitizeOrganism(name); name != "" {
			organism = name
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return organism, nil
}

// extractGenome streams one genome entry without its header lines into a
// temporary file below tmpDir, then moves it into dir.
func extractGenome(f *zip.File, tmpDir, dir string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(tmpDir, ".import-*.fna")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := stripHeaders(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmpPath) // Clean up on failure
		return "", fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	dest, err := fileutil.MoveFile(tmpPath, dir, path.Base(f.Name))
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move %s: %w", f.Name, err)
	}
	return dest, nil
}

// stripHeaders copies r to w, dropping lines that start with '>'.
func stripHeaders(w io.Writer, r io.Reader) error {
	br := bufio.NewReaderSize(r, 1<<20)
	bw := bufio.NewWriterSize(w, 1<<20)
	for {
		line, err := br.ReadSlice('\n')
		if len(line) > 0 && line[0] != '>' {
			if _, werr := bw.Write(line); werr != nil {
				return werr
			}
		}
		if err == bufio.ErrBufferFull {
			// Long line: keep copying it until its end
			if err := copyRest(bw, br, line[0] == '>'); err != nil {
				return err
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// copyRest finishes a line longer than the read buffer, discarding it when
// skip is set.
func copyRest(w io.Writer, br *bufio.Reader, skip bool) error {
	for {
		chunk, err := br.ReadSlice('\n')
		if !skip && len(chunk) > 0 {
			if _, werr := w.Write(chunk); werr != nil {
				return werr
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			return nil
		}
		return err
	}
}
