package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/executor"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
)

func newSearchCommand(root *rootOptions) *cobra.Command {
	var (
		indexPath string
		fuzzy     bool
		distance  int
		substring bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search an index file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("index") {
				cfg.Index.Path = indexPath
			}
			if !cmd.Flags().Changed("distance") {
				distance = cfg.Search.DefaultDistance
			}
			if fuzzy && substring {
				return fmt.Errorf("%w: --fuzzy and --substring are exclusive", herrors.ErrInvalidInput)
			}
			if distance < 0 {
				return fmt.Errorf("%w: --distance must not be negative", herrors.ErrInvalidInput)
			}

			coll, err := segment.Load(cfg.Index.Path)
			if err != nil {
				return err
			}

			var hits any
			var lines []string
			switch {
			case substring:
				found := executor.SearchSubstring(args[0], coll)
				hits = found
				for _, h := range found {
					lines = append(lines, fmt.Sprintf("%s\t%v", h.Filename, h.Offsets))
				}
			case fuzzy:
				found := executor.SearchFuzzy(tokenizer.Normalize(args[0]), distance, coll)
				hits = found
				for _, h := range found {
					lines = append(lines, fmt.Sprintf("%s\t%s\t%d", h.Filename, h.Token, h.Distance))
				}
			default:
				found := executor.SearchExact(tokenizer.Normalize(args[0]), coll)
				hits = found
				for _, h := range found {
					lines = append(lines, fmt.Sprintf("%s\t%d", h.Filename, h.Locator))
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(hits)
			}
			if len(lines) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, l := range lines {
				fmt.Fprintln(out, l)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&indexPath, "index", "index.bin", "index file to search")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "match tokens within --distance edits")
	cmd.Flags().IntVar(&distance, "distance", 2, "maximum edit distance for --fuzzy")
	cmd.Flags().BoolVar(&substring, "substring", false, "match the query anywhere in the text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
