package dictionary

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat is the on-disk shape of a corpus file.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatChunk              // dict_NNNN.bin chunk
	FormatText               // word list, one per line
)

func (f FileFormat) String() string {
	switch f {
	case FormatChunk:
		return "chunk"
	case FormatText:
		return "text"
	}
	return "unknown"
}

// Chunk files are named chunkPrefix + NNNN + chunkExt.
const (
	chunkPrefix = "dict_"
	chunkExt    = ".bin"
)

// maxChunkWords guards against reading garbage as a chunk header.
const maxChunkWords = 1_000_000

// sniffSize is how much of a text corpus is checked for binary content.
const sniffSize = 1024

// DetectFileFormat classifies filename by name and verifies that its content
// matches: a chunk needs a plausible word-count header, a word list must not
// contain NUL bytes in its first block.
func DetectFileFormat(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.ToLower(filepath.Base(filename))

	switch {
	case strings.HasPrefix(base, chunkPrefix) && ext == chunkExt:
		if err := checkChunkHeader(filename); err != nil {
			return FormatUnknown, err
		}
		return FormatChunk, nil
	case ext == chunkExt:
		return FormatUnknown, fmt.Errorf("%s: binary file is not a dict chunk", filename)
	}
	if err := checkText(filename); err != nil {
		return FormatUnknown, err
	}
	return FormatText, nil
}

func checkChunkHeader(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	var count int32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%s: read chunk header: %w", filename, err)
	}
	if count < 0 || count > maxChunkWords {
		return fmt.Errorf("%s: implausible chunk word count %d", filename, count)
	}
	log.Debugf("Chunk %s holds %d words", filename, count)
	return nil
}

func checkText(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := f.Read(buf)
	if err != nil {
		return fmt.Errorf("%s: read word list: %w", filename, err)
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return fmt.Errorf("%s: word list looks binary", filename)
		}
	}
	return nil
}
