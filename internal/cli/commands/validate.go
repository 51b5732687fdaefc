package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/convlog/pkg/config"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a convlog configuration file without running analysis.

Checks:
  - YAML syntax
  - Encoding name and error policies
  - Report formats and console mode
  - Webhook URLs and triggers
  - Input existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Inputs:          %d\n", len(cfg.Inputs))
	fmt.Fprintf(out, "  Encoding:        %s\n", cfg.Encoding)
	fmt.Fprintf(out, "  On decode error: %s\n", cfg.OnDecodeError)
	fmt.Fprintf(out, "  On file error:   %s\n", cfg.OnFileError)
	fmt.Fprintf(out, "  Match mode:      %s\n", cfg.MatchMode)
	fmt.Fprintf(out, "  Workers:         %d\n", cfg.Workers)
	fmt.Fprintf(out, "  Report formats:  %s\n", strings.Join(cfg.Output.Formats, ", "))
	fmt.Fprintf(out, "  Report dir:      %s\n", cfg.Output.Directory)
	if cfg.Output.Detailed {
		fmt.Fprintf(out, "  Detailed:        yes (max %d entries per level)\n", cfg.Output.MaxDetailedEntries)
	}
	fmt.Fprintf(out, "  Fail on:         %s\n", cfg.FailOn)

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(out, "\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}
			fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, name, wh.Trigger)
		}
	}

	if len(cfg.Inputs) == 0 {
		fmt.Fprintf(out, "\nWarning: No inputs configured; pass files to analyze on the command line\n")
		return nil
	}

	// Missing inputs are warnings only
	files, err := parser.DiscoverFiles(cfg.Inputs, parser.DiscoverOptions{
		Extensions: cfg.Extensions,
		Recursive:  cfg.Recursive,
	})
	if err != nil {
		fmt.Fprintf(out, "\nWarning: %v\n", err)
	} else {
		fmt.Fprintf(out, "\nLog files matched: %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}

	return nil
}
