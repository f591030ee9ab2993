package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/calebwray/spindle/internal/inference"
	"github.com/calebwray/spindle/internal/logger"
)

func runCmd() *cli.Command {
	var (
		prompt     string
		modelID    string
		strategy   string
		steps      int64
		temp       float64
		topK       int64
		topP       float64
		numBeams   int64
		seed       int64
		streamMode string
		showStats  bool
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Generate text from a prompt",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "prompt text",
				Destination: &prompt,
			},
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "model id",
				Value:       "toy-byte",
				Destination: &modelID,
			},
			&cli.StringFlag{
				Name:        "strategy",
				Aliases:     []string{"s"},
				Usage:       "decoding strategy (greedy, top-k, top-p, beam)",
				Value:       "greedy",
				Destination: &strategy,
			},
			&cli.Int64Flag{
				Name:        "steps",
				Aliases:     []string{"n", "num-tokens", "num_tokens"},
				Usage:       "number of tokens to generate",
				Value:       64,
				Destination: &steps,
			},
			&cli.Float64Flag{
				Name:        "temp",
				Aliases:     []string{"temperature", "t"},
				Usage:       "sampling temperature",
				Value:       1.0,
				Destination: &temp,
			},
			&cli.Int64Flag{
				Name:        "top-k",
				Aliases:     []string{"top_k", "topk"},
				Usage:       "top-k sampling parameter",
				Value:       40,
				Destination: &topK,
			},
			&cli.Float64Flag{
				Name:        "top-p",
				Aliases:     []string{"top_p", "topp"},
				Usage:       "top_p sampling parameter",
				Value:       0.95,
				Destination: &topP,
			},
			&cli.Int64Flag{
				Name:        "num-beams",
				Aliases:     []string{"beams"},
				Usage:       "beam width for beam search",
				Value:       4,
				Destination: &numBeams,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sampling RNG seed (default -1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "stream-mode",
				Usage:       "output mode (instant, typewriter, quiet)",
				Value:       "instant",
				Destination: &streamMode,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "print generation statistics after the text",
				Destination: &showStats,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyRunConfig(cmd, cfg, &steps, &temp, &topK, &topP, &numBeams, &seed, &streamMode)
			log := setupLogger()
			ctx = logger.WithContext(ctx, log)

			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("--prompt is required")
			}

			registry, _ := buildRegistry()
			engine := inference.New(registry, engineDefaults(cfg), log)

			maxTokens := int(steps)
			topKv := int(topK)
			beams := int(numBeams)
			req := inference.ResolveRequest(inference.RequestOptions{
				Prompt:       prompt,
				Model:        modelID,
				Strategy:     strategy,
				MaxNewTokens: &maxTokens,
				Temperature:  &temp,
				TopK:         &topKv,
				TopP:         &topP,
				NumBeams:     &beams,
				Seed:         &seed,
			}, engine.Defaults())

			writer := NewStreamWriter(StreamMode(streamMode))
			res, err := engine.Generate(ctx, &req, func(ev inference.TokenEvent) {
				if !ev.Finished {
					writer.Write(ev.Token)
				}
			})
			writer.Flush()
			fmt.Println()
			if err != nil {
				return err
			}

			if showStats {
				printStats(os.Stderr, &req, res)
			}
			return nil
		},
	}
}

func printStats(w *os.File, req *inference.Request, res *inference.Result) {
	_, _ = fmt.Fprintln(w, strings.Repeat("-", terminalWidth()))
	_, _ = fmt.Fprintf(w, "model: %s  strategy: %s  seed: %d\n", req.Model, req.Strategy, res.Stats.Seed)
	_, _ = fmt.Fprintf(w, "tokens: %d  finish: %s  duration: %s  tok/s: %.1f\n",
		res.Stats.TokensGenerated, res.FinishReason, res.Stats.Duration.Round(time.Millisecond), res.Stats.TPS)
}
