package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dianpeng/virtualsql/cg"
	"github.com/dianpeng/virtualsql/config"
	"github.com/dianpeng/virtualsql/engine"
	"github.com/dianpeng/virtualsql/vsql"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

func oops(stage string, err error) {
	red.Fprintf(os.Stderr, "ERROR [%s]]] %s\n", stage, err)
	os.Exit(-1)
}

// readSQL takes the statement from the arguments, or from stdin when there
// are none
func readSQL(cmd *cli.Command) string {
	if cmd.Args().Len() > 0 {
		return strings.Join(cmd.Args().Slice(), " ")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		oops("read sql", err)
	}
	return string(data)
}

func loadConfig(cmd *cli.Command) *config.Config {
	c := config.Default()
	if path := cmd.String("config"); path != "" {
		x, err := config.Load(path)
		if err != nil {
			oops("config", err)
		}
		c = x
	}
	if root := cmd.String("root"); root != "" {
		c.TargetDatastoreURL = root
		c.TargetDatastoreName = ""
	}
	if l := cmd.String("log-level"); l != "" {
		c.LogLevel = l
	}
	if err := c.Validate(); err != nil {
		oops("config", err)
	}
	return c
}

// warnings go to stderr in yellow, anything louder is an error
type warnHook struct{}

func (warnHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (warnHook) Fire(e *logrus.Entry) error {
	line, err := e.String()
	if err != nil {
		return err
	}
	switch e.Level {
	case logrus.WarnLevel:
		yellow.Fprint(os.Stderr, line)
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		red.Fprint(os.Stderr, line)
	default:
		fmt.Fprint(os.Stderr, line)
	}
	return nil
}

func newLogger(c *config.Config) logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(c.Level())
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.AddHook(warnHook{})
	return l
}

func writeResult(r *engine.Result, output string) error {
	if output == config.OutputCSV {
		w := csv.NewWriter(os.Stdout)
		if err := w.Write(r.Header); err != nil {
			return err
		}
		if err := w.WriteAll(r.Rows); err != nil {
			return err
		}
		return w.Error()
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(r.Header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(r.Rows)
	table.SetFooter(footer(len(r.Header), len(r.Rows)))
	table.Render()
	return nil
}

func footer(n int, rows int) []string {
	out := make([]string, n)
	if n > 0 {
		out[n-1] = fmt.Sprintf("%d rows", rows)
	}
	return out
}

var configFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration file",
	},
	&cli.StringFlag{
		Name:  "root",
		Usage: "directory holding the table files, overrides the configuration",
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	},
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "run a statement against the configured target",
		ArgsUsage: "[sql]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "table or csv, overrides the configuration",
			},
		}, configFlags...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := loadConfig(cmd)
			if o := cmd.String("output"); o != "" {
				c.Output = o
				if err := c.Validate(); err != nil {
					oops("config", err)
				}
			}

			out, err := vsql.Run(readSQL(cmd), c, vsql.WithLogger(newLogger(c)))
			if err != nil {
				oops("query", err)
			}
			if out.Result == nil {
				fmt.Println(out.SQL)
				return nil
			}
			if err := writeResult(out.Result, c.Output); err != nil {
				oops("output", err)
			}
			return nil
		},
	}
}

func treeCommand() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "print the decomposed query tree",
		ArgsUsage: "[sql]",
		Flags:     configFlags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := loadConfig(cmd)
			tree, err := vsql.Decompose(readSQL(cmd), newLogger(c))
			if err != nil {
				oops("decompose", err)
			}
			fmt.Print(tree.Print())
			return nil
		},
	}
}

func translateCommand() *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "render the statement in another dialect",
		ArgsUsage: "[sql]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "dialect",
				Value: cg.DialectANSI,
				Usage: "ansi or postgres",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "dialect the statement was written in, overrides the configuration",
			},
		}, configFlags...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := loadConfig(cmd)
			source := c.InputSQLType
			if s := cmd.String("source"); s != "" {
				source = s
			}

			tree, err := vsql.Decompose(readSQL(cmd), newLogger(c))
			if err != nil {
				oops("decompose", err)
			}
			x, err := cg.Generate(tree, &cg.Config{
				Dialect:       cmd.String("dialect"),
				SourceDialect: source,
			})
			if err != nil {
				oops("code-gen", err)
			}
			fmt.Println(x)
			return nil
		},
	}
}

func awkCommand() *cli.Command {
	return &cli.Command{
		Name:      "awk",
		Usage:     "print, or run, the awk program scanning one table with its filters",
		ArgsUsage: "[sql]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "table",
				Usage: "alias-or-name of the table, the first one by default",
			},
			&cli.BoolFlag{
				Name:  "run",
				Usage: "run the program with goawk and print the filtered rows",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "save to this path instead of writing to STDOUT",
			},
		}, configFlags...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c := loadConfig(cmd)

			var w io.Writer = os.Stdout
			if path := cmd.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					oops("save", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			if err := vsql.Scan(
				readSQL(cmd),
				c,
				cmd.String("table"),
				cmd.Bool("run"),
				w,
				vsql.WithLogger(newLogger(c)),
			); err != nil {
				oops("awk", err)
			}
			return nil
		},
	}
}

func main() {
	app := &cli.Command{
		Name:  "virtualsql",
		Usage: "answer SQL over flat files, or translate it for another datastore",
		Commands: []*cli.Command{
			queryCommand(),
			treeCommand(),
			translateCommand(),
			awkCommand(),
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		oops("virtualsql", err)
	}
}
