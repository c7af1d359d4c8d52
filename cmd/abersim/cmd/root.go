// Package cmd provides the command-line interface for abersim.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "abersim",
	Short: "Abersim injects pre-recorded Zernike aberrations into " +
		"adaptive-optics simulation pupils.",
	Long: `Abersim builds Zernike mode bases on pupil grids, loads a ` +
		`recorded time series of mode coefficients, and applies the ` +
		`correct aberration sample to the pupil phase screens once per ` +
		`simulation tick.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	// Flag defaults may come from a .env file; a missing file is fine.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
