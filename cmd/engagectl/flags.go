package main

import (
	"io"
	"os"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config string `long:"config" description:"YAML overlay with tracker and aggregation tunables (overrides CONFIG_FILE)"`
}

// apply exports global flags to the environment read by config.Load.
func (g *GlobalFlags) apply() error {
	if g.Config != "" {
		return os.Setenv("CONFIG_FILE", g.Config)
	}
	return nil
}

// RecomputeCommand recomputes analytics snapshots.
type RecomputeCommand struct {
	Document string `long:"document" description:"Document ID"`
	Days     string `long:"days" description:"Lookback window: 7, 30 or 90" default:"30"`
	All      bool   `long:"all" description:"Refresh every active document for every configured window"`

	globals *GlobalFlags
	out     io.Writer
}

// HeatmapCommand renders a document's pixel heatmap.
type HeatmapCommand struct {
	Document string `long:"document" description:"Document ID (required)" required:"true"`
	Days     string `long:"days" description:"Lookback window: 7, 30 or 90" default:"30"`
	Out      string `long:"out" description:"Output PNG path" default:"heatmap.png"`

	globals *GlobalFlags
	out     io.Writer
}

// HashKeyCommand prints the bcrypt hash of a service key.
type HashKeyCommand struct {
	Key  string `long:"key" description:"Service API key (or pass it as the first argument)"`
	Cost int    `long:"cost" description:"bcrypt cost" default:"10"`

	out io.Writer
}

// ReplayCommand replays a scripted reading session.
type ReplayCommand struct {
	Script   string `long:"script" description:"YAML replay script (required)" required:"true"`
	Endpoint string `long:"endpoint" description:"Base URL of the API" default:"http://localhost:8080"`
	APIKey   string `long:"api-key" description:"Service API key for the session endpoint" env:"SERVICE_API_KEY"`
	Storage  string `long:"storage" description:"SQLite file holding the device identifier (in-memory when empty)"`

	globals *GlobalFlags
	out     io.Writer
}
