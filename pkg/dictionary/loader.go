package dictionary

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// CorpusProvider supplies the word list the index is built from, in rank order.
type CorpusProvider interface {
	Words(ctx context.Context) ([]string, error)
}

// StaticCorpus is an in-memory word list.
type StaticCorpus []string

// Words returns a copy of the list.
func (s StaticCorpus) Words(context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// TextCorpus reads one word per line. Anything after a tab is ignored, as are
// blank lines and lines starting with '#'.
type TextCorpus struct {
	Path string
}

// Words reads the file.
func (t TextCorpus) Words(ctx context.Context) ([]string, error) {
	file, err := os.Open(t.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for line := 0; scanner.Scan(); line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := scanner.Text()
		if tab := strings.IndexByte(text, '\t'); tab >= 0 {
			text = text[:tab]
		}
		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		words = append(words, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.Path, err)
	}
	return words, nil
}

// ChunkInfo contains metadata about a chunk file
type ChunkInfo struct {
	ID        int
	Filename  string
	WordCount int
}

// ChunkCorpus reads binary chunk files named dict_0001.bin, dict_0002.bin, ...
// in ID order. Each chunk is an int32 entry count followed by entries of
// uint16 length, the word bytes and a uint16 rank, all little endian.
type ChunkCorpus struct {
	Dir string
	// MaxWords stops reading once this many entries were read; 0 reads all.
	MaxWords int
}

// GetAvailable scans the directory for chunk files
func (cc ChunkCorpus) GetAvailable() ([]ChunkInfo, error) {
	files, err := filepath.Glob(filepath.Join(cc.Dir, chunkPrefix+"*"+chunkExt))
	if err != nil {
		return nil, fmt.Errorf("failed to scan for chunk files: %w", err)
	}

	var chunks []ChunkInfo
	for _, file := range files {
		idStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), chunkPrefix), chunkExt)
		chunkID, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		wordCount, err := chunkWordCount(file)
		if err != nil {
			log.Warnf("Failed to get word count for chunk %s: %v", file, err)
			continue
		}
		chunks = append(chunks, ChunkInfo{ID: chunkID, Filename: file, WordCount: wordCount})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})
	return chunks, nil
}

// Words reads every chunk in order.
func (cc ChunkCorpus) Words(ctx context.Context) ([]string, error) {
	chunks, err := cc.GetAvailable()
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunk files found in %s", cc.Dir)
	}
	log.Debugf("Found %d chunk files", len(chunks))

	var words []string
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cc.MaxWords > 0 && len(words) >= cc.MaxWords {
			break
		}
		entries, err := readChunk(chunk.Filename)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunk.ID, err)
		}
		words = append(words, entries...)
		log.Debugf("Chunk %d loaded: %d words", chunk.ID, len(entries))
	}
	if cc.MaxWords > 0 && len(words) > cc.MaxWords {
		words = words[:cc.MaxWords]
	}
	return words, nil
}

// chunkWordCount reads the word count from a chunk file's header
func chunkWordCount(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var wordCount int32
	if err := binary.Read(file, binary.LittleEndian, &wordCount); err != nil {
		return 0, err
	}
	return int(wordCount), nil
}

// minEntrySize is a length prefix plus a rank with an empty word.
const minEntrySize = 4

// readChunk returns the words of one chunk sorted by their stored rank
func readChunk(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk file %s: %w", filename, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat chunk file %s: %w", filename, err)
	}

	reader := bufio.NewReader(file)
	var totalEntries int32
	if err := binary.Read(reader, binary.LittleEndian, &totalEntries); err != nil {
		return nil, fmt.Errorf("failed to read chunk header: %w", err)
	}
	if totalEntries < 0 || totalEntries > maxChunkWords {
		return nil, fmt.Errorf("implausible entry count %d", totalEntries)
	}

	type entry struct {
		word string
		rank uint16
	}
	// The header is not trusted for sizing: an entry takes at least
	// minEntrySize bytes of the file.
	entries := make([]entry, 0, min(int64(totalEntries), (stat.Size()-4)/minEntrySize))
	for len(entries) < int(totalEntries) {
		var wordLen uint16
		if err := binary.Read(reader, binary.LittleEndian, &wordLen); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read word length: %w", err)
		}
		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(reader, wordBytes); err != nil {
			return nil, fmt.Errorf("failed to read word: %w", err)
		}
		var rank uint16
		if err := binary.Read(reader, binary.LittleEndian, &rank); err != nil {
			return nil, fmt.Errorf("failed to read rank: %w", err)
		}
		entries = append(entries, entry{word: string(wordBytes), rank: rank})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].rank < entries[j].rank
	})
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.word
	}
	return words, nil
}

// OpenCorpus picks a provider for path: a directory of chunk files or a text word list.
func OpenCorpus(path string) (CorpusProvider, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, &CorpusError{Op: "open", Path: path, Err: err}
	}
	if stat.IsDir() {
		return ChunkCorpus{Dir: path}, nil
	}
	format, err := DetectFileFormat(path)
	if err != nil {
		return nil, &CorpusError{Op: "open", Path: path, Err: err}
	}
	switch format {
	case FormatChunk:
		return ChunkCorpus{Dir: filepath.Dir(path)}, nil
	case FormatText:
		return TextCorpus{Path: path}, nil
	}
	return nil, &CorpusError{Op: "open", Path: path, Err: fmt.Errorf("unsupported format %v", format)}
}

// Load reads the provider and builds the index. Any failure is a *CorpusError.
func Load(ctx context.Context, provider CorpusProvider, opts ...IndexOption) (*Index, error) {
	words, err := provider.Words(ctx)
	if err != nil {
		return nil, &CorpusError{Op: "read", Path: providerPath(provider), Err: err}
	}
	if len(words) == 0 {
		return nil, &CorpusError{Op: "read", Path: providerPath(provider), Err: ErrEmptyCorpus}
	}
	idx, err := BuildIndex(words, opts...)
	if err != nil {
		if ce, ok := err.(*CorpusError); ok && ce.Path == "" {
			ce.Path = providerPath(provider)
		}
		return nil, err
	}
	log.Debugf("Indexed %d of %d corpus entries", idx.Len(), len(words))
	return idx, nil
}

func providerPath(p CorpusProvider) string {
	switch v := p.(type) {
	case TextCorpus:
		return v.Path
	case ChunkCorpus:
		return v.Dir
	}
	return ""
}
