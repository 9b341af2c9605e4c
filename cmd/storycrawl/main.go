// Package main provides the entry point for the storycrawl CLI.
//
// storycrawl downloads serialized fiction chapter by chapter into one plain
// text file per work.
//
// Usage:
//
//	storycrawl crawl <slug>
//	storycrawl status
//
// See --help for all available options.
package main

func main() {
	Execute()
}
