// Package archive extracts task files from gzip-compressed tar archives.
// It is a stateless transform: compressed bytes in, file list out.
package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/evalview/traceview/internal/models"
)

const (
	// MaxTextContent is the decoded-content ceiling per file; text files
	// above it keep path/size only.
	MaxTextContent = 256 * 1024

	// MaxOutput bounds the total bytes read out of one archive so a hostile
	// upload cannot exhaust memory.
	MaxOutput = 10 << 20

	// sniffLen is how much of an oversized file is read to classify it as
	// text or binary.
	sniffLen = 8000
)

// ErrTooLarge reports that extraction stopped at the output ceiling. The
// files collected before the ceiling are still returned.
var ErrTooLarge = errors.New("archive exceeds extraction ceiling")

// Extract lists the regular files inside a .tar.gz archive. Text content
// (valid UTF-8, no NUL bytes) is retained for files up to MaxTextContent.
func Extract(data []byte) ([]models.ExtractedFile, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("archive: opening gzip stream: %w", err)
	}
	defer zr.Close() //nolint:errcheck

	tr := tar.NewReader(zr)
	files := []models.ExtractedFile{}
	budget := int64(MaxOutput)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return files, fmt.Errorf("archive: reading tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		file := models.ExtractedFile{Path: hdr.Name, Size: hdr.Size}

		readLen := hdr.Size
		if readLen > MaxTextContent {
			readLen = sniffLen
		}
		if readLen > budget {
			return files, ErrTooLarge
		}

		content := make([]byte, readLen)
		if _, err := io.ReadFull(tr, content); err != nil {
			return files, fmt.Errorf("archive: reading %s: %w", hdr.Name, err)
		}
		budget -= readLen

		if isText(content) {
			if hdr.Size <= MaxTextContent {
				file.Content = string(content)
			}
		} else {
			file.Binary = true
		}

		files = append(files, file)
	}

	return files, nil
}

// isText reports whether data looks like UTF-8 text. A NUL byte or invalid
// encoding marks the file binary.
func isText(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	return utf8.Valid(data)
}
