// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// enumValue is a string flag restricted to a fixed set of values. Bad values
// are rejected while flags are parsed, before any command work starts.
type enumValue struct {
	value   string
	allowed []string
	kind    string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnumValue(kind, def string, allowed ...string) *enumValue {
	return &enumValue{value: def, allowed: allowed, kind: kind}
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(s string) error {
	if !slices.Contains(e.allowed, s) {
		return fmt.Errorf("must be one of %s", strings.Join(e.allowed, ", "))
	}
	e.value = s
	return nil
}

func (e *enumValue) Type() string { return e.kind }

// enumFlag registers e on cmd along with shell completion of its values.
func enumFlag(cmd *cobra.Command, e *enumValue, name, usage string) {
	cmd.Flags().Var(e, name, usage)
	_ = cmd.RegisterFlagCompletionFunc(name, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return e.allowed, cobra.ShellCompDirectiveNoFileComp
	})
}
