package plugin

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

// HelpArg is the second token of the "<plugin> help" invocation.
const HelpArg = "help"

// RenderHelp writes the help page for one plugin: its description, every
// action tagged with its kind, and usage examples.
func RenderHelp(w io.Writer, appName string, meta Metadata) error {
	fmt.Fprint(w, pterm.DefaultSection.Sprintf("Plugin: %s", meta.Name))
	if meta.Description != "" {
		fmt.Fprintln(w, meta.Description)
		fmt.Fprintln(w)
	}

	data := pterm.TableData{{"Action", "Description"}}
	for _, a := range meta.Actions {
		data = append(data, []string{fmt.Sprintf("%s (%s)", a.Name, a.Kind), a.Description})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render(); err != nil {
		return fmt.Errorf("failed to render actions: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	for _, a := range meta.Actions {
		fmt.Fprintf(w, "  %s %s\n", appName, a.Name)
	}
	fmt.Fprintf(w, "  %s %s %s\n", appName, meta.Name, HelpArg)
	return nil
}
