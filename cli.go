package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/binaryfields/zinc64/emu/log"
)

type (
	CLI struct {
		Run     Run     `cmd:"" help:"Run an image in the emulator. (default command)" default:"true"`
		Infos   Infos   `cmd:"" help:"Show image infos."`
		Version Version `cmd:"" help:"Show zinc64 version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
	}

	Run struct {
		ImagePath string `arg:"" name:"/path/to/image" help:"PRG, P00, CRT or TAP image to mount." type:"existingfile"`

		ConfigDir string `name:"config-dir" help:"Directory holding zinc64.toml and the ROM images." default:"."`
		Frames    int    `name:"frames" help:"Stop after N frames (0 = run forever)." default:"0"`
		Autostart bool   `name:"autostart" help:"Inject the program and type RUN once BASIC is up." default:"true"`
	}

	Infos struct {
		ImagePath string `arg:"" name:"/path/to/image" type:"existingfile"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"log_help": "Enable debug logging for specified modules.",
}

func parseArgs(args []string) (CLI, *kong.Context) {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("zinc64"),
		kong.Description("Commodore 64 emulator core."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	return cli, ctx
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s
  As a special case, "all" enables every module.
`
	var strs []string
	for _, m := range log.ModuleNames() {
		strs = append(strs, "    - "+m)
	}
	fmt.Fprintf(ctx.Stdout, loggingHelp, strings.Join(strs, "\n")+"\n")
	return nil
}

// logModMask decodes the --log flag into a module mask.
type logModMask struct {
	mask log.ModuleMask
}

func (lm *logModMask) UnmarshalText(text []byte) error {
	for _, modname := range strings.Split(string(text), ",") {
		if modname == "all" {
			lm.mask |= log.ModuleMaskAll
			continue
		}
		m, found := log.ModuleByName(modname)
		if !found {
			return fmt.Errorf("invalid log module %q", modname)
		}
		lm.mask |= m.Mask()
	}
	return nil
}

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, format+": %v\n", append(args, err)...)
	os.Exit(2)
}
