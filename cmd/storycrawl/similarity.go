package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/storycrawl/internal/similarity"
)

// NewSimilarityCmd creates the similarity command.
func NewSimilarityCmd() *cobra.Command {
	names := make([]string, 0, len(similarity.Algorithms()))
	for _, a := range similarity.Algorithms() {
		names = append(names, string(a))
	}

	cmd := &cobra.Command{
		Use:   "similarity <a> <b>",
		Short: "Print how similar two strings are",
		Long: `Similarity prints a score between 0 and 1, where 1 means the strings are
identical.

Examples:
  storycrawl similarity anh ah
  storycrawl similarity --algorithm levenshtein "Tiên Nghịch" "Tien Nghich"`,
		Args: cobra.ExactArgs(2),
		RunE: runSimilarityCmd,
	}

	cmd.Flags().StringP("algorithm", "a", string(similarity.DefaultAlgorithm),
		"Algorithm: "+strings.Join(names, ", "))

	return cmd
}

func runSimilarityCmd(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("algorithm")
	if err != nil {
		return err
	}
	alg, err := similarity.ParseAlgorithm(name)
	if err != nil {
		return err
	}
	ratio, err := similarity.Ratio(args[0], args[1], alg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ratio)
	return nil
}
