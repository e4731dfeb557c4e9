package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/vanityserve/vanityserve/internal/utils"
)

// DefaultChunkSize is the number of words per chunk file.
const DefaultChunkSize = 10000

// WriteChunks splits words, in order, into dict_0001.bin, dict_0002.bin, ...
// under dir. Ranks are positions inside each chunk, so ChunkCorpus reads the
// words back in the same order. It returns the number of files written.
func WriteChunks(dir string, words []string, chunkSize int) (int, error) {
	if len(words) == 0 {
		return 0, &CorpusError{Op: "write", Path: dir, Err: ErrEmptyCorpus}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	chunkSize = min(chunkSize, math.MaxUint16)
	if err := utils.EnsureDir(dir); err != nil {
		return 0, &CorpusError{Op: "write", Path: dir, Err: err}
	}

	files := 0
	for start := 0; start < len(words); start += chunkSize {
		end := min(start+chunkSize, len(words))
		files++
		name := filepath.Join(dir, fmt.Sprintf("%s%04d%s", chunkPrefix, files, chunkExt))
		if err := writeChunk(name, words[start:end]); err != nil {
			return files - 1, &CorpusError{Op: "write", Path: name, Err: err}
		}
		log.Debugf("Wrote chunk %s: %d words", name, end-start)
	}
	return files, nil
}

func writeChunk(filename string, words []string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	writer := bufio.NewWriter(file)
	if err := binary.Write(writer, binary.LittleEndian, int32(len(words))); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, word := range words {
		if len(word) > math.MaxUint16 {
			return fmt.Errorf("word at position %d is too long", i)
		}
		if err := binary.Write(writer, binary.LittleEndian, uint16(len(word))); err != nil {
			return fmt.Errorf("writing word length: %w", err)
		}
		if _, err := writer.WriteString(word); err != nil {
			return fmt.Errorf("writing word %s: %w", word, err)
		}
		if err := binary.Write(writer, binary.LittleEndian, uint16(i)); err != nil {
			return fmt.Errorf("writing rank for word %s: %w", word, err)
		}
	}
	return writer.Flush()
}
