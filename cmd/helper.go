// Package cmd holds the colored cobra help and usage rendering shared by the
// pvtag commands.
//
// nolint:errcheck
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var (
	titleStyle       = color.New(color.Bold, color.FgHiWhite)
	commandStyle     = color.New(color.FgHiGreen)
	descriptionStyle = color.New(color.FgHiCyan)
	aliasStyle       = color.New(color.FgHiGreen)
	exampleStyle     = color.New(color.FgHiCyan)
	flagStyle        = color.New(color.Bold, color.FgHiCyan)
	tipStyle         = color.New(color.FgHiYellow)
	groupTitleStyle  = color.New(color.Bold, color.FgHiMagenta)
)

// HelpTemplate prints the long description followed by the colored usage.
var HelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}`

// rpad pads s with spaces to padding display cells.
func rpad(s string, padding int) string {
	return runewidth.FillRight(s, padding)
}

func trimRightSpace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

func allChildCommandsHaveGroup(cmd *cobra.Command) bool {
	for _, subcmd := range cmd.Commands() {
		if subcmd.GroupID == "" && subcmd.IsAvailableCommand() {
			return false
		}
	}
	return true
}

func listed(subcmd *cobra.Command) bool {
	return subcmd.IsAvailableCommand() || subcmd.Name() == "help"
}

// writeCommands prints a titled list of the subcommands keep accepts.
func writeCommands(buf *bytes.Buffer, title *color.Color, heading string, cmds []*cobra.Command, keep func(*cobra.Command) bool) {
	fmt.Fprint(buf, "\n\n")
	title.Fprint(buf, heading)
	for _, subcmd := range cmds {
		if !keep(subcmd) {
			continue
		}
		fmt.Fprint(buf, "\n  ")
		commandStyle.Fprint(buf, rpad(subcmd.Name(), subcmd.NamePadding()))
		fmt.Fprint(buf, " ")
		descriptionStyle.Fprint(buf, subcmd.Short)
	}
}

var (
	reWithShort = regexp.MustCompile(`^( {2,})(-[a-zA-Z]), (--[a-zA-Z0-9-]+)(.*)$`)
	reLongOnly  = regexp.MustCompile(`^( {2,})(--[a-zA-Z0-9-]+)(.*)$`)
)

// colorFlags highlights the flag names of a pflag usage block.
func colorFlags(raw string) []byte {
	var out bytes.Buffer

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case reWithShort.MatchString(line):
			m := reWithShort.FindStringSubmatch(line)
			indent, shortFlag, longFlag, rest := m[1], m[2], m[3], m[4]
			out.WriteString(indent)
			flagStyle.Fprint(&out, shortFlag)
			out.WriteString(", ")
			out.WriteString(longFlag)
			out.WriteString(rest)

		case reLongOnly.MatchString(line):
			m := reLongOnly.FindStringSubmatch(line)
			indent, longFlag, rest := m[1], m[2], m[3]
			out.WriteString(indent)
			flagStyle.Fprint(&out, longFlag)
			out.WriteString(rest)

		default:
			out.WriteString(line)
		}
		out.WriteByte('\n')
	}

	return out.Bytes()
}

// ColorUsageFunc writes a colored usage message for cmd.
func ColorUsageFunc(w io.Writer, cmd *cobra.Command) error {
	buf := &bytes.Buffer{}

	titleStyle.Fprint(buf, "Usage:")
	if cmd.Runnable() {
		fmt.Fprint(buf, "\n  ")
		commandStyle.Fprint(buf, cmd.UseLine())
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprint(buf, "\n  ")
		commandStyle.Fprintf(buf, "%s [command]", cmd.CommandPath())
	}

	if len(cmd.Aliases) > 0 {
		fmt.Fprint(buf, "\n\n")
		titleStyle.Fprint(buf, "Aliases:")
		fmt.Fprint(buf, "\n  ")
		aliasStyle.Fprint(buf, strings.Join(cmd.Aliases, ", "))
	}

	if cmd.HasExample() {
		fmt.Fprint(buf, "\n\n")
		titleStyle.Fprint(buf, "Examples:")
		fmt.Fprint(buf, "\n")
		exampleStyle.Fprint(buf, cmd.Example)
	}

	if cmd.HasAvailableSubCommands() {
		cmds := cmd.Commands()
		if len(cmd.Groups()) == 0 {
			writeCommands(buf, titleStyle, "Available Commands:", cmds, listed)
		} else {
			for _, group := range cmd.Groups() {
				writeCommands(buf, groupTitleStyle, group.Title, cmds, func(c *cobra.Command) bool {
					return c.GroupID == group.ID && listed(c)
				})
			}
			if !allChildCommandsHaveGroup(cmd) {
				writeCommands(buf, titleStyle, "Additional Commands:", cmds, func(c *cobra.Command) bool {
					return c.GroupID == "" && listed(c)
				})
			}
		}
	}

	if cmd.HasAvailableLocalFlags() {
		fmt.Fprint(buf, "\n\n")
		titleStyle.Fprint(buf, "Flags:")
		fmt.Fprint(buf, "\n")
		buf.Write(colorFlags(trimRightSpace(cmd.LocalFlags().FlagUsages())))
	}

	if cmd.HasAvailableInheritedFlags() {
		fmt.Fprint(buf, "\n\n")
		titleStyle.Fprint(buf, "Global Flags:")
		fmt.Fprint(buf, "\n")
		buf.Write(colorFlags(trimRightSpace(cmd.InheritedFlags().FlagUsages())))
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprint(buf, "\n\n")
		tipStyle.Fprintf(buf, "Use \"%s [command] --help\" for more information about a command.", cmd.CommandPath())
	}

	fmt.Fprintln(buf)

	_, err := w.Write(buf.Bytes())
	return err
}

// ColorHelpFunc prints the colored usage to the command's output.
func ColorHelpFunc(c *cobra.Command, _ []string) {
	ColorUsageFunc(c.OutOrStdout(), c)
}
