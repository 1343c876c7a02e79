package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/provisdev/provis/internal/style"
)

// resolveCmd prints the artifact that would be downloaded, without
// downloading it.
var resolveCmd = &cobra.Command{
	Use:   "resolve <runtime>",
	Short: "Resolve the download URL for a runtime without fetching it",
	Long: `Resolve fetches the provider catalog for a runtime, applies the platform and
any project version constraint, and prints the single artifact that 'provis
get' would download.`,
	Example: `
  provis resolve node                        # resolve for the host platform
  provis resolve java --target linux/arm64   # resolve for another platform
  provis resolve node --output json          # machine-readable result`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResolve(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

// resolution is the printable outcome of a resolve.
type resolution struct {
	Runtime    string `json:"runtime" yaml:"runtime"`
	Version    string `json:"version" yaml:"version"`
	URL        string `json:"url" yaml:"url"`
	Target     string `json:"target" yaml:"target"`
	LTS        bool   `json:"lts" yaml:"lts"`
	Constraint string `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

func runResolve(cmd *cobra.Command, alias string) error {
	target, err := resolveTarget()
	if err != nil {
		return err
	}

	manager, err := newManager()
	if err != nil {
		return err
	}

	artifact, err := manager.Resolve(cmd.Context(), alias, target)
	if err != nil {
		return err
	}

	result := resolution{
		Runtime: alias,
		Version: artifact.RawVersion,
		URL:     artifact.URL,
		Target:  target.String(),
		LTS:     artifact.LTS.IsLTS(),
	}
	if c, err := manager.Constraint(alias); err == nil && c != nil {
		result.Constraint = c.String()
	}

	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(cmd.OutOrStdout(), result)
	case "yaml":
		style.PrintYAML(cmd.OutOrStdout(), result)
	default:
		printResolution(cmd.OutOrStdout(), result)
	}

	return nil
}

func printResolution(w io.Writer, r resolution) {
	fmt.Fprintf(w, "%s %s %s\n", r.Runtime, style.VersionStyle.Render(r.Version), style.MutedStyle.Render("("+r.Target+")"))
	if r.Constraint != "" {
		fmt.Fprintf(w, "  constraint: %s\n", style.TagStyle.Render(r.Constraint))
	}
	if r.LTS {
		fmt.Fprintf(w, "  %s\n", style.TagStyle.Render("lts"))
	}
	fmt.Fprintf(w, "  %s\n", style.URLStyle.Render(r.URL))
}
