// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Command archena runs the semantic kernel: the HTTP and bus service, one
// shot agent dispatches, skill execution and an MCP tool server.
//
// Usage:
//
//	archena serve --config config.yaml --profile dev
//	archena run --agent sre --type incident "payments latency doubled"
//	archena skills exec summarization "long text"
//	archena mcp
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/internal/app"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/agents"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/config"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/mcp"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/telemetry"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Run the HTTP ingress and the bus listener."`
	Run     RunCmd     `cmd:"" help:"Dispatch one envelope and print the response."`
	Skills  SkillsCmd  `cmd:"" help:"List or execute skills."`
	Agents  AgentsCmd  `cmd:"" help:"List the configured agents."`
	MCP     MCPCmd     `cmd:"" name:"mcp" help:"Serve the skills as MCP tools over stdio."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config  string   `short:"c" help:"Path to config file." type:"path" env:"ARCHENA_CONFIG"`
	Profile string   `short:"p" help:"Config profile overlay (config.<profile>.yaml)." env:"ARCHENA_PROFILE"`
	Set     []string `sep:"none" help:"Override a config key (key=value). Repeatable." placeholder:"KEY=VALUE"`
	EnvFile []string `name:"env-file" help:"Load a .env file before reading the environment. Repeatable." type:"path"`
	JSON    bool     `help:"Print machine-readable output."`
}

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

func (c *CLI) options() config.Options {
	return config.Options{
		Path:      c.Config,
		Profile:   c.Profile,
		DotEnv:    c.EnvFile,
		Overrides: c.Set,
	}
}

func (c *CLI) load() (*config.Config, error) {
	cfg, err := config.LoadWithOptions(c.options())
	if err != nil {
		return nil, NewConfigError(err, c.Config)
	}
	return cfg, nil
}

// build loads the configuration and assembles the app. Logs go to stderr
// so stdout stays clean for command output.
func (c *CLI) build(ctx context.Context) (*app.App, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, err
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return app.New(ctx, cfg, logger)
}

func (c *CLI) out() io.Writer { return stdout }

func (c *CLI) printJSON(v any) error {
	enc := json.NewEncoder(c.out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ServeCmd runs the service until interrupted.
type ServeCmd struct {
	Watch bool `help:"Reload the config file on change (log level applies live)."`
}

func (s *ServeCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.build(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	var w *config.Watcher
	if s.Watch {
		if w, err = config.NewWatcher(cli.options(), config.WithWatchLogger(a.Logger)); err != nil {
			return NewConfigError(err, cli.Config)
		}
	}
	return a.Run(ctx, w)
}

// RunCmd routes one envelope in-process.
type RunCmd struct {
	Agent   string `short:"a" help:"Target agent; empty routes by capability."`
	Type    string `short:"t" help:"Message type." default:"think"`
	Payload string `arg:"" help:"Envelope payload. Use - to read stdin."`
}

func (r *RunCmd) Run(ctx context.Context, cli *CLI) error {
	t, err := messaging.ParseMessageType(r.Type)
	if err != nil {
		return NewInvalidArgumentError("type", err.Error())
	}
	payload := r.Payload
	if payload == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		payload = string(data)
	}

	a, err := cli.build(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	d, err := a.Router.Route(ctx, messaging.NewEnvelope(t, r.Agent, payload))
	if err != nil {
		return err
	}
	if d.Mode == agents.ModeDropped {
		return NewInvalidArgumentError("type", fmt.Sprintf("no agent handles %q", r.Type))
	}

	responses := collect(d)
	if cli.JSON {
		if err := cli.printJSON(runOutput{Mode: d.Mode, Agents: d.Agents, Responses: responses}); err != nil {
			return err
		}
	} else {
		for _, resp := range responses {
			if len(responses) > 1 {
				fmt.Fprintf(cli.out(), "[%s] ", resp.Agent)
			}
			fmt.Fprintln(cli.out(), resp.Payload)
		}
	}
	for _, resp := range responses {
		if resp.Type == messaging.MessageError {
			return NewAgentError(resp.Agent, resp.MetaString(messaging.MetaErrorCode), resp.Payload)
		}
	}
	return nil
}

type runOutput struct {
	Mode      agents.Mode          `json:"mode"`
	Agents    []string             `json:"agents"`
	Responses []messaging.Envelope `json:"responses"`
}

// collect waits for the dispatch to finish and returns its responses,
// broadcast ones sorted by agent.
func collect(d agents.Dispatch) []messaging.Envelope {
	if d.Response != nil {
		return []messaging.Envelope{*d.Response}
	}
	var out []messaging.Envelope
	for res := range d.Results {
		out = append(out, res.Response)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

// SkillsCmd groups skill subcommands.
type SkillsCmd struct {
	List SkillsListCmd `cmd:"" default:"1" help:"List registered skills."`
	Exec SkillsExecCmd `cmd:"" help:"Execute one skill on text input."`
}

type SkillsListCmd struct{}

func (SkillsListCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.build(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return printSkills(cli, a.Skills.Descriptors())
}

func printSkills(cli *CLI, descs []skills.Descriptor) error {
	if cli.JSON {
		return cli.printJSON(descs)
	}
	tw := tabwriter.NewWriter(cli.out(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tOUTPUT\tDESCRIPTION")
	for _, d := range descs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Category, d.OutputKind, d.Description)
	}
	return tw.Flush()
}

type SkillsExecCmd struct {
	Name  string `arg:"" help:"Skill name."`
	Input string `arg:"" help:"Text input."`
}

func (s *SkillsExecCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.build(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	if _, ok := a.Skills.Get(s.Name); !ok {
		return NewNotFoundError("skill", s.Name)
	}
	out, err := a.Kernel.ExecuteSkill(ctx, s.Name, s.Input)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out(), out)
	return nil
}

// AgentsCmd lists the agents the router knows.
type AgentsCmd struct{}

func (AgentsCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.build(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	names := a.Router.Agents()
	if cli.JSON {
		return cli.printJSON(names)
	}
	for _, n := range names {
		fmt.Fprintln(cli.out(), n)
	}
	return nil
}

// MCPCmd exposes the skill registry to MCP clients on stdio.
type MCPCmd struct{}

func (MCPCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.build(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return mcp.NewSkillServer(app.ServiceName, app.Version, a.Skills).ServeStdio()
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (VersionCmd) Run(cli *CLI) error {
	fmt.Fprintf(cli.out(), "archena %s\n", version())
	return nil
}

func version() string {
	if app.Version != "dev" {
		return app.Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return app.Version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("archena"),
		kong.Description("ArchenaAI semantic kernel"),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err := kctx.Run(&cli); err != nil {
		PrintError(err, cli.JSON)
		os.Exit(1)
	}
}
