package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/scormrte/internal/errorstate"
)

// ErrorCodeInfo describes one entry of the error taxonomy for output.
type ErrorCodeInfo struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// NewErrorsCommand creates the errors command.
func NewErrorsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code]",
		Short: "List the SCORM 2004 error codes",
		Long: `List the run-time error taxonomy, or describe a single code.

Examples:
  scormrte errors
  scormrte errors 404
  scormrte errors --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listErrors(rootOpts, args, cmd)
		},
	}
}

func listErrors(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := formatter(opts, cmd)
	defs := errorstate.Definitions()
	if len(args) == 1 {
		code, ok := errorstate.ParseCode(args[0])
		if !ok {
			return out.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("unknown error code %q", args[0]), nil)
		}
		d, _ := errorstate.Lookup(code)
		defs = []errorstate.Definition{d}
	}

	infos := make([]ErrorCodeInfo, len(defs))
	for i, d := range defs {
		infos[i] = ErrorCodeInfo{
			Code:     d.Code.String(),
			Name:     d.Name,
			Message:  d.Message,
			Category: string(d.Category),
		}
	}

	if out.JSON() {
		return out.Success(infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tMESSAGE\tCATEGORY")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Code, info.Message, info.Category)
	}
	return tw.Flush()
}
