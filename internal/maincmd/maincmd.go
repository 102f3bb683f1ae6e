// Package maincmd implements the tangle CLI's subcommand dispatch: flag
// parsing, command lookup and top-level error reporting, grounded on the
// teacher's reflection-driven Cmd/buildCmds shape.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"

	"github.com/mna/tangle/internal/config"
)

const binName = "tangle"

// configPath is the project config file consulted by Main before applying
// CLI flags, relative to the working directory the command runs from.
const configPath = ".tangle.yaml"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Tangles literate-programming documents: pandoc-style fenced code blocks
with metadata headers are compiled, linked and interpreted into output
files or onto stdout.

The <command> can be one of:
       tangle                    Execute every file=... block's chain
                                 into its declared output file.
       ls                        List the tags and files defined across
                                 the given documents.
       call                      Execute one or more --tag/--file chains
                                 into stdout.
       tokens                    Print the raw token stream of the given
                                 documents (debugging aid).

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --allow-absolute-paths    Allow file=... paths starting with / or
                                 ~/ (rejected by default).
       --omit-trailing-newline   Do not append a final newline after a
                                 tangled file's content.
       --shell                   Enable |filter shell placeholders
                                 (disabled, and a compile error, by
                                 default).
       --cache-key               Print a content hash of the given
                                 documents to stdout before running the
                                 command, for build-system caching
                                 (tangle, ls and call; tokens ignores it).

Valid flag options for the <ls> command are:
       --bytecode                Print each document's disassembled
                                 bytecode instead of the names.
       --graph                   Print a Graphviz "dot" call graph instead
                                 of a flat list.
       --find=TAG                Print every call site that references TAG
                                 instead of a flat list.

Valid flag options for the <call> command are:
       --tag=NAME[,NAME...]      Execute the named tag(s), in order.
       --file=PATH[,PATH...]     Execute the named file=... chain(s), in
                                 order.
       --trace                   Print cross-reference call sites instead
                                 of tangled output (requires --tag or
                                 --file naming exactly one target).
`, binName)
)

// Cmd is the parsed command line, dispatched by reflection to one of its
// exported subcommand methods (Tangle, Ls, Call, Tokens).
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	AllowAbsolutePaths  bool `flag:"allow-absolute-paths"`
	OmitTrailingNewline bool `flag:"omit-trailing-newline"`
	ShellFlag           bool `flag:"shell"`

	Bytecode bool   `flag:"bytecode"`
	Graph    bool   `flag:"graph"`
	Find     string `flag:"find"`

	Tag   string `flag:"tag"`
	File  string `flag:"file"`
	Trace bool   `flag:"trace"`

	CacheKey bool `flag:"cache-key"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	if (cmdName == "tangle" || cmdName == "tokens") && len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: at least one file must be provided", cmdName)
	}

	if c.flags["bytecode"] && cmdName != "ls" {
		return fmt.Errorf("%s: invalid flag 'bytecode'", cmdName)
	}
	if c.flags["graph"] && cmdName != "ls" {
		return fmt.Errorf("%s: invalid flag 'graph'", cmdName)
	}
	if c.flags["find"] && cmdName != "ls" {
		return fmt.Errorf("%s: invalid flag 'find'", cmdName)
	}
	if c.Bytecode && c.Graph {
		return errors.New("ls: --bytecode and --graph are mutually exclusive")
	}
	if (c.flags["tag"] || c.flags["file"]) && cmdName != "call" {
		return fmt.Errorf("%s: invalid flag 'tag'/'file'", cmdName)
	}
	if c.flags["trace"] && cmdName != "call" {
		return fmt.Errorf("%s: invalid flag 'trace'", cmdName)
	}
	if cmdName == "call" && !c.flags["tag"] && !c.flags["file"] {
		return errors.New("call: at least one of --tag or --file is required")
	}

	return nil
}

// applyConfig seeds flags the caller did not explicitly pass with the
// project's layered config (.tangle.yaml, then environment variables),
// leaving any flag present in c.flags untouched since the CLI always
// takes precedence over the file/environment layers.
func (c *Cmd) applyConfig(cfg config.Config) {
	if !c.flags["allow-absolute-paths"] {
		c.AllowAbsolutePaths = cfg.AllowAbsolutePaths
	}
	if !c.flags["omit-trailing-newline"] {
		c.OmitTrailingNewline = cfg.OmitTrailingNewline
	}
	if !c.flags["shell"] {
		c.ShellFlag = cfg.ShellEnabled
	}
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", configPath, err)
		return mainer.Failure
	}
	c.applyConfig(cfg)

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are those that take a mainer.Stdio and a slice of strings
// as input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
