package logging

import (
	"archive/tar"
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

const redacted = "[REDACTED]"

// ExtractErrors returns the last n JSON log lines at or above minLevel
func ExtractErrors(path, minLevel string, n int) ([]string, error) {
	threshold, err := zerolog.ParseLevel(strings.ToLower(minLevel))
	if err != nil {
		return nil, err
	}

	var matched []string
	err = eachLine(path, func(line string) {
		var entry struct {
			Level string `json:"level"`
		}
		if json.Unmarshal([]byte(line), &entry) != nil {
			return
		}
		lvl, err := zerolog.ParseLevel(entry.Level)
		if err != nil || lvl < threshold {
			return
		}
		matched = append(matched, line)
	})
	if err != nil {
		return nil, err
	}

	if n > 0 && len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched, nil
}

// Search returns every line containing query, case-insensitive
func Search(path, query string) ([]string, error) {
	q := strings.ToLower(query)
	var out []string
	err := eachLine(path, func(line string) {
		if strings.Contains(strings.ToLower(line), q) {
			out = append(out, line)
		}
	})
	return out, err
}

func eachLine(path string, fn func(string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}

// CompressLogs archives every *.log* file directly in dir into a .tar.gz at output.
// It returns the number of archived files.
func CompressLogs(dir, output string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.log*"))
	if err != nil {
		return 0, err
	}
	absOut, _ := filepath.Abs(output)

	var files []string
	for _, m := range matches {
		if abs, _ := filepath.Abs(m); abs == absOut {
			continue
		}
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return 0, fmt.Errorf("no log files found in %s", dir)
	}

	out, err := os.Create(output)
	if err != nil {
		return 0, err
	}
	if err := writeArchive(out, files); err != nil {
		out.Close()
		os.Remove(output)
		return 0, err
	}
	if err := out.Close(); err != nil {
		os.Remove(output)
		return 0, err
	}
	return len(files), nil
}

func writeArchive(w io.Writer, files []string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	for _, path := range files {
		if err := addFile(tw, path); err != nil {
			return fmt.Errorf("archive %s: %w", path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// openLogFile is swapped in tests to fail part way through an archive
var openLogFile = os.Open

func addFile(tw *tar.Writer, path string) error {
	f, err := openLogFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

var credentialPattern = regexp.MustCompile(`(?i)((?:password|passwd|token|secret)\s*[=:]\s*)("[^"]*"|\S+)`)

// RedactSecrets masks every literal secret and any key=value credential in line
func RedactSecrets(line string, secrets ...string) string {
	for _, s := range secrets {
		if s != "" {
			line = strings.ReplaceAll(line, s, redacted)
		}
	}
	return credentialPattern.ReplaceAllString(line, "${1}"+redacted)
}
