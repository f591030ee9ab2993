package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func tokenizeCmd() *cli.Command {
	var (
		text  string
		tokID string
		show  bool
	)

	return &cli.Command{
		Name:  "tokenize",
		Usage: "Tokenize text with a built-in tokenizer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "text",
				Usage:       "text to tokenize",
				Destination: &text,
			},
			&cli.StringFlag{
				Name:        "tokenizer",
				Usage:       "tokenizer id",
				Value:       "byte",
				Destination: &tokID,
			},
			&cli.BoolFlag{
				Name:        "show-tokens",
				Usage:       "print the decoded text of each token",
				Destination: &show,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if text == "" {
				return fmt.Errorf("--text is required")
			}

			_, catalog := buildRegistry()
			tok, ok := catalog.Get(tokID)
			if !ok {
				ids := make([]string, 0)
				for _, info := range catalog.List() {
					ids = append(ids, info.ID)
				}
				return fmt.Errorf("unknown tokenizer %q (available: %s)", tokID, strings.Join(ids, ", "))
			}

			ids, err := tok.Encode(text)
			if err != nil {
				return err
			}
			fmt.Printf("tokens: %d\n", len(ids))
			fmt.Printf("ids: %v\n", ids)
			if show {
				for _, id := range ids {
					piece, err := tok.Decode([]int{id})
					if err != nil {
						return err
					}
					fmt.Printf("  %6d  %q\n", id, piece)
				}
			}
			return nil
		},
	}
}
