package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/storycrawl/internal/wordlist"
)

// NewWordsCmd creates the words command.
func NewWordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words [file...]",
		Short: "Collect unique words from crawled text",
		Long: `Words splits the given text files (or standard input) into lowercase words
and adds the ones not seen before to a word list file, one word per line.

Examples:
  # Add the words of a crawled work to unique_words.txt
  storycrawl words stories/tien-nghich.txt

  # Use another list file
  storycrawl words --list vocab.txt stories/*.txt`,
		RunE: runWordsCmd,
	}

	cmd.Flags().StringP("list", "l", wordlist.DefaultFile, "Word list file")

	return cmd
}

func runWordsCmd(cmd *cobra.Command, args []string) error {
	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return err
	}

	list, err := wordlist.Load(listPath)
	if err != nil {
		return err
	}

	var words []string
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read standard input: %w", err)
		}
		words = wordlist.Tokenize(string(data))
	}
	for _, path := range args {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
		if err != nil {
			return err
		}
		words = append(words, wordlist.Tokenize(string(data))...)
	}

	added := list.Merge(words)
	if err := list.Save(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total words: %d\n", len(words))
	fmt.Fprintf(out, "New unique words: %d\n", len(added))
	fmt.Fprintf(out, "Unique words: %d\n", list.Len())
	return nil
}
