// Package ctl implements the nucleusctl command tree over the ops HTTP
// surface of a running nucleusd.
package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nucleusd/pkg/types"
	"nucleusd/pkg/version"
)

// defaultAddr matches the daemon's http.addr default.
const defaultAddr = "127.0.0.1:8420"

// BuildRootCmd constructs the cobra command tree.
func BuildRootCmd() *cobra.Command {
	addr := defaultAddr
	if v := os.Getenv("NUCLEUS_ADDR"); v != "" {
		addr = v
	}
	var asJSON bool

	root := &cobra.Command{
		Use:           "nucleusctl",
		Short:         "Inspect a running nucleusd host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", addr,
		"nucleusd ops address (defaults NUCLEUS_ADDR or "+defaultAddr+")")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "Raw JSON output")

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check whether the host is ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			ready, err := NewClient(addr).Ready()
			if err != nil {
				return err
			}
			if !ready {
				fmt.Fprintln(cmd.OutOrStdout(), "not ready")
				return fmt.Errorf("host at %s is not ready", addr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ready")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the aggregated manager report",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := NewClient(addr).Status()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printStatus(cmd.OutOrStdout(), report)
			return nil
		},
	})

	plugins := &cobra.Command{
		Use:   "plugins [name]",
		Short: "List plugins, or show one by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewClient(addr)
			if len(args) == 1 {
				info, err := c.Plugin(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), info)
				}
				printPlugins(cmd.OutOrStdout(), []types.PluginInfo{info})
				return nil
			}
			list, err := c.Plugins()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), types.PluginsResponse{Plugins: list})
			}
			printPlugins(cmd.OutOrStdout(), list)
			return nil
		},
	}
	root.AddCommand(plugins)

	root.AddCommand(&cobra.Command{
		Use:   "tasks",
		Short: "List tracked tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := NewClient(addr).Tasks()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), types.TasksResponse{Tasks: list})
			}
			printTasks(cmd.OutOrStdout(), list)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})

	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(w io.Writer, r types.StatusReport) {
	state := "stopped"
	if r.Running {
		state = "running"
	}
	fmt.Fprintf(w, "host %s (version %s, uptime %ds)\n", state, r.Version, r.UptimeSeconds)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MANAGER\tINITIALIZED\tHEALTHY\tERROR")
	for _, m := range r.Managers {
		fmt.Fprintf(tw, "%s\t%t\t%t\t%s\n", m.Name, m.Initialized, m.Healthy, m.Error)
	}
	tw.Flush()
}

func printPlugins(w io.Writer, list []types.PluginInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tSTATE\tORIGIN\tENABLED\tDEPENDENCIES")
	for _, p := range list {
		deps := ""
		for i, d := range p.Dependencies {
			if i > 0 {
				deps += ","
			}
			deps += d
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			p.Name, p.Version, p.State, p.Origin, p.Enabled, deps)
	}
	tw.Flush()
}

func printTasks(w io.Writer, list []types.TaskInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSUBMITTER\tERROR")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Status, t.Submitter, t.Error)
	}
	tw.Flush()
}
