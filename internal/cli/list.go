package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/provisdev/provis/internal/runtime/types"
	"github.com/provisdev/provis/internal/style"
)

// listCmd lists the candidate versions for a runtime on the current target.
var listCmd = &cobra.Command{
	Use:   "list [runtime]",
	Short: "List available runtime versions for the target platform",
	Long: `List prints the versions a runtime's provider offers for the target platform,
newest first. Without an argument it lists the supported runtime commands.`,
	Example: `
  provis list            # show supported runtimes
  provis list node       # versions available for this platform
  provis list node --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runListRuntimes(cmd)
		}
		return runList(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runListRuntimes(cmd *cobra.Command) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	for _, name := range manager.Commands() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

// listing is one printable catalog entry.
type listing struct {
	Version string   `json:"version" yaml:"version"`
	URL     string   `json:"url" yaml:"url"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func runList(cmd *cobra.Command, alias string) error {
	target, err := resolveTarget()
	if err != nil {
		return err
	}

	manager, err := newManager()
	if err != nil {
		return err
	}

	catalog, err := manager.Candidates(cmd.Context(), alias, target)
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		return fmt.Errorf("%s on %s: %w", alias, target, types.ErrUnsupportedTarget)
	}

	listings := make([]listing, 0, len(catalog))
	for _, artifact := range catalog {
		listings = append(listings, listing{
			Version: artifact.RawVersion,
			URL:     artifact.URL,
			Tags:    artifactTags(artifact),
		})
	}

	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(cmd.OutOrStdout(), listings)
	case "yaml":
		style.PrintYAML(cmd.OutOrStdout(), listings)
	default:
		printListings(cmd.OutOrStdout(), listings)
	}

	return nil
}

func artifactTags(a types.Artifact) []string {
	var tags []string
	if a.LTS.IsLTS() {
		tags = append(tags, "lts")
	}
	if a.Security {
		tags = append(tags, "security")
	}
	return tags
}

func printListings(w io.Writer, listings []listing) {
	for _, l := range listings {
		line := style.VersionStyle.Render(l.Version)
		if len(l.Tags) > 0 {
			line += " " + style.TagStyle.Render(strings.Join(l.Tags, ","))
		}
		fmt.Fprintln(w, line)
	}
}
