// Package main provides reelinctl, an offline calculator over the Reelin tax rules
// for accountants and for checking figures without a running server.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reelin/backend/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	Version = "0.1.0"
	appName = "reelinctl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
type options struct {
	output  string
	verbose bool
	log     *zap.Logger
}

func rootCmd() *cobra.Command {
	opts := &options{log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "UK sole-trader tax calculators",
		Long: `reelinctl runs the Reelin tax rules locally.

It covers HMRC approved mileage rates, the simplified home-office flat rate,
business-use apportionment, nine-box VAT returns and tax-year boundaries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "text", "yaml":
			default:
				return fmt.Errorf("unknown output format %q (text or yaml)", opts.output)
			}
			if opts.verbose {
				log, err := logging.Init("debug", true)
				if err != nil {
					return err
				}
				opts.log = log.With(zap.String("component", appName))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format (text, yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(
		mileageCmd(opts),
		homeOfficeCmd(opts),
		apportionCmd(opts),
		vatCmd(opts),
		taxYearCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// line is one label/value pair of text output.
type line struct {
	label string
	value string
}

// render writes either the aligned text lines or v as YAML.
func render(w io.Writer, opts *options, v any, lines []line) error {
	if opts.output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	width := 0
	for _, l := range lines {
		if len(l.label) > width {
			width = len(l.label)
		}
	}
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%-*s  %s\n", width, l.label, l.value)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
