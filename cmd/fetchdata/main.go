// Command fetchdata downloads sample datasets for the benchmark. It
// accepts a comma-separated URL list, decompresses ".gz" payloads while
// downloading, and prints the xxh3 checksum of each written file.
//
// Example:
//
//	fetchdata -urls="https://example.com/customers.tsv.gz" -dir=./data
package main

import (
	"context"
	"flag"
	"log"
	"path"
	"path/filepath"
	"strings"

	"bulkbench/internal/fetch"
)

func main() {
	urls := flag.String("urls", "", "Comma-separated list of URLs to download")
	dir := flag.String("dir", ".", "Destination directory")
	sums := flag.String("sums", "", "Optional comma-separated xxh3 checksums, aligned with -urls")
	concurrency := flag.Int("concurrency", 2, "Maximum concurrent downloads")
	flag.Parse()

	if *urls == "" {
		log.Fatal("fetchdata: -urls is required")
	}

	files := buildFiles(*urls, *sums, *dir)
	got, err := fetch.All(context.Background(), files, *concurrency)
	if err != nil {
		log.Fatalf("fetchdata: %v", err)
	}
	for dest, sum := range got {
		log.Printf("fetched %s xxh3=%s", dest, sum)
	}
}

// buildFiles pairs each URL with its destination path (the URL basename,
// minus a trailing .gz) and optional expected checksum.
func buildFiles(urls, sums, dir string) []fetch.File {
	us := strings.Split(urls, ",")
	var cs []string
	if sums != "" {
		cs = strings.Split(sums, ",")
	}
	files := make([]fetch.File, 0, len(us))
	for i, u := range us {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		name := strings.TrimSuffix(path.Base(u), ".gz")
		f := fetch.File{URL: u, Dest: filepath.Join(dir, name)}
		if i < len(cs) {
			f.Checksum = strings.TrimSpace(cs[i])
		}
		files = append(files, f)
	}
	return files
}
