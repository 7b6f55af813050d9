// Command acbf inspects and edits ACBF comic books and maintains a
// searchable catalog of them.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/acbf/core/sqlite"
	"github.com/FocuswithJustin/acbf/internal/logging"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"warn" env:"ACBF_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" env:"ACBF_LOG_FORMAT"`

	out io.Writer `kong:"-"`
}

// Out is where command output is written.
func (g *Globals) Out() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

func (g *Globals) printf(format string, args ...any) {
	fmt.Fprintf(g.Out(), format, args...)
}

// CLI defines the command-line interface for acbf.
type CLI struct {
	Globals

	Info     InfoCmd     `cmd:"" help:"Show book metadata"`
	Validate ValidateCmd `cmd:"" help:"Check a book against its schema"`
	Pages    PagesCmd    `cmd:"" help:"List pages with their images and overlays"`
	Data     DataGroup   `cmd:"" help:"Binary data operations"`
	Styles   StylesGroup `cmd:"" help:"Stylesheet operations"`
	Cover    CoverCmd    `cmd:"" help:"Export the cover image"`
	Create   CreateCmd   `cmd:"" help:"Create a new book"`
	SetTitle SetTitleCmd `cmd:"" name:"set-title" help:"Set a book title"`
	Catalog  CatalogCmd  `cmd:"" help:"Index and search a library of books"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// DataGroup contains data store operations.
type DataGroup struct {
	List    DataListCmd    `cmd:"" help:"List embedded binaries and archive entries"`
	Extract DataExtractCmd `cmd:"" help:"Write a binary or archive entry to a file"`
	Add     DataAddCmd     `cmd:"" help:"Add a file to a book"`
}

// StylesGroup contains stylesheet operations.
type StylesGroup struct {
	List StylesListCmd `cmd:"" help:"List stylesheets"`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	info := sqlite.GetInfo()
	g.printf("acbf version %s (sqlite %s)\n", version, info.DriverType)
	return nil
}

func initLogging(g *Globals) error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("acbf"),
		kong.Description("ACBF comic book tool"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	ctx.FatalIfErrorf(initLogging(&cli.Globals))
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
