package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/docgo"
	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/index/inverted"
)

// CLI bundles the root command with its configuration sources.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	in        io.Reader
	out       io.Writer
	errOut    io.Writer
}

func newCLI(in io.Reader, out, errOut io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		in:        in,
		out:       out,
		errOut:    errOut,
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()

	return cli
}

// Execute runs the command line.
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// setupViperConfig reads DOCGO_* environment variables and docgo.yaml.
func (cli *CLI) setupViperConfig() {
	v := cli.viperInst

	if configFile := os.Getenv("DOCGO_CONFIG"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("docgo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.docgo")
	}

	v.SetEnvPrefix("DOCGO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine.
	_ = v.ReadInConfig()
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "docgo",
		Short: "docgo - embedded document collections",
		Long: `docgo manages document collections stored as directories <path>/<collection>.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (DOCGO_*)
3. Configuration file (DOCGO_CONFIG, ./docgo.yaml or ~/.docgo/docgo.yaml)

Examples:
  docgo --path ./data create people
  echo '{id: alice, city: Berlin}' | docgo -c people insert
  docgo -c people find --where city=Berlin
  docgo -c people find 'city:berlin -name:bob'
  docgo -c people export --to dir --dir ./out`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       docgo.Version,
	}
	cli.rootCmd.SetIn(cli.in)
	cli.rootCmd.SetOut(cli.out)
	cli.rootCmd.SetErr(cli.errOut)

	cli.addGlobalFlags()
}

func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.StringP("path", "p", ".", "Directory holding the collections")
	flags.StringP("collection", "c", "", "Collection name")
	flags.String("codec", codec.Default.Name(), "Codec for new documents (json|go-json|yaml)")
	flags.String("compression", inverted.CompressionLZ4.String(), "Segment compression (none|lz4|zstd)")
	flags.Bool("no-journal", false, "Disable the replace journal")
	flags.StringP("output", "o", "json", "Output format (json|yaml)")
	flags.String("log-format", "text", "Log format (text|json|none)")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")

	for _, name := range []string{"path", "collection", "codec", "compression", "no-journal", "output", "log-format", "log-level"} {
		_ = cli.viperInst.BindPFlag(name, flags.Lookup(name))
	}
}

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.createCommand(),
		cli.collectionsCommand(),
		cli.infoCommand(),
		cli.insertCommand(),
		cli.saveCommand(),
		cli.getCommand(),
		cli.findCommand(),
		cli.countCommand(),
		cli.deleteCommand(),
		cli.emptyCommand(),
		cli.fieldsCommand(),
		cli.exportCommand(),
	)
}

// options translates the configuration into store options.
func (cli *CLI) options() ([]docgo.Option, error) {
	v := cli.viperInst

	c, ok := codec.ByName(v.GetString("codec"))
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", v.GetString("codec"))
	}
	comp, err := inverted.ParseCompression(v.GetString("compression"))
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cli.errOut, v.GetString("log-format"), v.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	return []docgo.Option{
		docgo.WithCodec(c),
		docgo.WithCompression(comp),
		docgo.WithReplaceJournal(!v.GetBool("no-journal")),
		docgo.WithLogger(logger),
	}, nil
}

func (cli *CLI) catalog(extra ...docgo.Option) (*docgo.Catalog, error) {
	opts, err := cli.options()
	if err != nil {
		return nil, err
	}
	return docgo.NewCatalog(append(opts, extra...)...), nil
}

func (cli *CLI) collection() (string, error) {
	name := cli.viperInst.GetString("collection")
	if name == "" {
		return "", fmt.Errorf("no collection given (use --collection or DOCGO_COLLECTION)")
	}
	return name, nil
}

// withStore opens the configured collection, runs fn and closes it.
func (cli *CLI) withStore(ctx context.Context, fn func(*docgo.Store) error, extra ...docgo.Option) (err error) {
	name, err := cli.collection()
	if err != nil {
		return err
	}
	cat, err := cli.catalog(extra...)
	if err != nil {
		return err
	}

	store, err := cat.OpenCollection(ctx, name, cli.viperInst.GetString("path"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(store)
}
