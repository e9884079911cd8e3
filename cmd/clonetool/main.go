// clonetool encodes JSONC documents into structured-clone payloads and
// inspects or decodes existing payloads.
//
//	clonetool encode --in value.jsonc --out value.bin
//	clonetool decode --in value.bin
//	clonetool inspect --in value.bin
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oy3o/clone"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	name    string
	summary string
	run     func(env *env, args []string) error
}

var commands = []command{
	{"encode", "encode a JSONC document into a payload", runEncode},
	{"decode", "decode a payload and print the value graph", runDecode},
	{"inspect", "print the header of a payload", runInspect},
}

// env carries what every command needs.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	codec  *clone.Codec
	log    *zap.Logger
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(&env{stdin: stdin, stdout: stdout}, args[1:])
		}
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: clonetool <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
}

// commonFlags are shared by all commands.
type commonFlags struct {
	config  string
	verbose bool
	in      string
}

func (f *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "TOML file with codec settings")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log codec activity to stderr")
	fs.StringVarP(&f.in, "in", "i", "-", "input file, - for stdin")
}

// setup builds the logger and the codec described by the flags.
func (f *commonFlags) setup(e *env) error {
	cfg := clone.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = clone.LoadConfig(f.config); err != nil {
			return err
		}
	}
	log, err := newLogger(f.verbose, cfg.LogLevel)
	if err != nil {
		return err
	}
	e.log = log
	e.codec = clone.New(append(cfg.Options(), clone.WithLogger(log))...)
	return nil
}

func newLogger(verbose bool, level string) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// parse parses args into fs, printing usage on --help.
func parse(e *env, fs *pflag.FlagSet, args []string) (help bool, err error) {
	fs.SetOutput(e.stdout)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return false, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return false, nil
}

func readInput(e *env, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(e.stdin)
	}
	return os.ReadFile(path)
}
