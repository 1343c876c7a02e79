package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/provisdev/provis/internal/style"
)

// getCmd provisions a runtime: resolve, download, unpack, cache.
var getCmd = &cobra.Command{
	Use:   "get <runtime>",
	Short: "Download and install a runtime into the local cache",
	Long: `Get resolves the runtime build matching your platform and project version
constraint, downloads it, unpacks it into the cache and prints the path of
the runtime's executable.

A version already present in the cache is reused without any network traffic.`,
	Example: `
  provis get node      # provision Node.js
  provis get npm       # same artifact as node, npm binary path
  provis get java      # provision a JDK`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, alias string) error {
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

	sp := style.NewSpinner(cmd.ErrOrStderr())
	sp.SetSuffix(fmt.Sprintf(" Fetching %s %s", alias, artifact.RawVersion))
	sp.SetFinalMSG(style.SuccessIcon() + fmt.Sprintf(" Installed %s %s\n", alias, artifact.RawVersion))
	sp.Start()

	installDir, err := manager.Prepare(cmd.Context(), alias, target)
	if err != nil {
		sp.SetFinalMSG("")
		sp.Stop()
		return err
	}
	sp.Stop()

	binPath, err := manager.BinPath(alias, target)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(installDir, filepath.FromSlash(binPath)))
	return nil
}
