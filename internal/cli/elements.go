package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/scormrte/internal/datamodel"
)

// ElementInfo describes one data model element for output.
type ElementInfo struct {
	Element    string   `json:"element"`
	Access     string   `json:"access"`
	Type       string   `json:"type"`
	Vocabulary []string `json:"vocabulary,omitempty"`
	MaxLength  int      `json:"max_length,omitempty"`
	Default    *string  `json:"default,omitempty"`
}

// NewElementsCommand creates the elements command.
func NewElementsCommand(rootOpts *RootOptions) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "elements",
		Short: "List the cmi.* and adl.nav.* data model elements",
		Long: `List every data model element with its access mode, value type and
default. Collection indexes are written as n (and m for nested lists).

Examples:
  scormrte elements
  scormrte elements --prefix cmi.interactions
  scormrte elements --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listElements(rootOpts, prefix, cmd)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "only list elements starting with prefix")
	return cmd
}

func listElements(opts *RootOptions, prefix string, cmd *cobra.Command) error {
	var infos []ElementInfo
	for _, e := range datamodel.Elements() {
		if !strings.HasPrefix(e.Element, prefix) {
			continue
		}
		infos = append(infos, ElementInfo{
			Element:    e.Element,
			Access:     e.Spec.Access.String(),
			Type:       e.Spec.Type.String(),
			Vocabulary: e.Spec.Vocabulary,
			MaxLength:  e.Spec.MaxLength,
			Default:    e.Spec.Default,
		})
	}

	out := formatter(opts, cmd)
	if len(infos) == 0 {
		return out.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no elements match prefix %q", prefix), nil)
	}
	if out.JSON() {
		return out.Success(infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ELEMENT\tACCESS\tTYPE\tDEFAULT")
	for _, info := range infos {
		def := "-"
		if info.Default != nil {
			def = fmt.Sprintf("%q", *info.Default)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Element, info.Access, info.Type, def)
	}
	return tw.Flush()
}
