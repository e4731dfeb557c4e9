// Copyright 2025 The vanityserve Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command vanitydict converts a plain word list into dict_*.bin chunks that
// vanityserve loads faster, and lists the chunks already in a directory.
//
//	vanitydict -in data/words.txt -out data/chunks -chunk 10000
//	vanitydict -info data/chunks
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/vanityserve/vanityserve/internal/utils"
	"github.com/vanityserve/vanityserve/pkg/dictionary"
)

func main() {
	in := flag.String("in", "data/words.txt", "Word list to convert, one word per line")
	out := flag.String("out", "data/chunks", "Directory to write dict_*.bin chunks into")
	chunkSize := flag.Int("chunk", dictionary.DefaultChunkSize, "Words per chunk")
	wordLimit := flag.Int("words", 0, "Maximum number of words to write (0 for all)")
	info := flag.String("info", "", "List the chunks in this directory and exit")
	debugMode := flag.Bool("d", false, "Toggle debug mode")

	flag.Parse()

	if *debugMode {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *info != "" {
		if err := listChunks(*info); err != nil {
			log.Fatalf("Failed to list chunks: %v", err)
		}
		return
	}

	n, err := convert(ctx, *in, *out, *chunkSize, *wordLimit)
	if err != nil {
		log.Fatalf("Failed to convert %s: %v", *in, err)
	}
	log.Infof("Wrote %d chunk files to %s", n, *out)
}

// convert writes the words of the list at in as chunks under out.
// Duplicates are dropped, keeping the first occurrence.
func convert(ctx context.Context, in, out string, chunkSize, limit int) (int, error) {
	words, err := dictionary.TextCorpus{Path: in}.Words(ctx)
	if err != nil {
		return 0, err
	}
	seen := utils.NewSeenFilter()
	unique := words[:0]
	for _, w := range words {
		if seen.ShouldInclude(w) {
			unique = append(unique, w)
		}
	}
	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}
	log.Debugf("Converting %d words (%d duplicates dropped)", len(unique), len(words)-seen.Len())
	if len(unique) == 0 {
		return 0, dictionary.ErrEmptyCorpus
	}
	return dictionary.WriteChunks(out, unique, chunkSize)
}

func listChunks(dir string) error {
	chunks, err := dictionary.ChunkCorpus{Dir: dir}.GetAvailable()
	if err != nil {
		return err
	}
	total := 0
	for _, c := range chunks {
		fmt.Printf("%4d  %-20s %10s words\n", c.ID, c.Filename, utils.FormatWithCommas(c.WordCount))
		total += c.WordCount
	}
	fmt.Printf("%d chunks, %s words\n", len(chunks), utils.FormatWithCommas(total))
	return nil
}
