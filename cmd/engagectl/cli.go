package main

import (
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Recompute *RecomputeCommand
	Heatmap   *HeatmapCommand
	HashKey   *HashKeyCommand
	Replay    *ReplayCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "engagectl"
	parser.LongDescription = "Operate the engagement analytics backend."

	cmds := &commands{
		Recompute: &RecomputeCommand{globals: &globals, out: out},
		Heatmap:   &HeatmapCommand{globals: &globals, out: out},
		HashKey:   &HashKeyCommand{out: out},
		Replay:    &ReplayCommand{globals: &globals, out: out},
	}

	parser.AddCommand("recompute", "Recompute analytics snapshots", "Recompute and overwrite the analytics snapshot of one document, or of every active document with --all.", cmds.Recompute)
	parser.AddCommand("heatmap", "Render a pixel heatmap PNG", "Render a document's pixel heatmap over its reference screenshot and write it as PNG.", cmds.Heatmap)
	parser.AddCommand("hash-key", "Hash a service API key", "Print the bcrypt hash of a service API key for SERVICE_API_KEY_HASH.", cmds.HashKey)
	parser.AddCommand("replay", "Replay a scripted reading session", "Drive a tracker through a scripted event sequence on a simulated clock and deliver the session to an API.", cmds.Replay)

	return parser, &globals, cmds
}

// runWithArgs parses args and executes the matched subcommand.
func runWithArgs(args []string) error {
	return runWithOutput(args, os.Stdout)
}

func runWithOutput(args []string, out io.Writer) error {
	parser, _, _ := buildParser(out)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}
	return nil
}
