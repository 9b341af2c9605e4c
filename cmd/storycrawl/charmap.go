package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/storycrawl/internal/charmap"
)

const defaultCharTable = "Vietnamese-Characters.txt"

// NewCharmapCmd creates the charmap command and its subcommands.
func NewCharmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charmap",
		Short: "Convert words to and from character codes",
		Long: `Charmap converts between characters and the integer codes listed in a
character table file. Each line of the table is a character followed by its
code, e.g. "ă 2".

Examples:
  storycrawl charmap encode tiếng
  storycrawl charmap decode 20 9 6 14 7 --table chars.txt`,
	}

	cmd.PersistentFlags().StringP("table", "t", defaultCharTable, "Character table file")

	cmd.AddCommand(&cobra.Command{
		Use:   "encode <word...>",
		Short: "Print the codes of each word's characters",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCharmapEncode,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decode <code...>",
		Short: "Print the word spelled by the codes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCharmapDecode,
	})

	return cmd
}

func loadCharTable(cmd *cobra.Command) (*charmap.Table, error) {
	path, err := cmd.Flags().GetString("table")
	if err != nil {
		return nil, err
	}
	return charmap.Load(path)
}

func runCharmapEncode(cmd *cobra.Command, args []string) error {
	tbl, err := loadCharTable(cmd)
	if err != nil {
		return err
	}
	for _, word := range args {
		codes, err := tbl.EncodeWord(word)
		if err != nil {
			return err
		}
		parts := make([]string, len(codes))
		for i, c := range codes {
			parts[i] = strconv.Itoa(c)
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
	}
	return nil
}

func runCharmapDecode(cmd *cobra.Command, args []string) error {
	tbl, err := loadCharTable(cmd)
	if err != nil {
		return err
	}
	codes := make([]int, len(args))
	for i, a := range args {
		codes[i], err = strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid code %q: %w", a, err)
		}
	}
	word, err := tbl.DecodeWord(codes)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), word)
	return nil
}
