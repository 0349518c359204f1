// Govee-ctl controls Govee Bluetooth LED lights from the command line.
//
// It talks to paired lights directly over BLE GATT and supports power,
// brightness, color, and color temperature control as well as reading
// the light's current state back.
//
// Usage:
//
//	govee-ctl [command] [flags]
//
// Devices are paired once with 'govee-ctl devices add' and addressed by
// name afterwards. See 'govee-ctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwaldron/govee-ble/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "govee-ctl",
	Short: "Govee BLE Light Controller",
	Long: `Control Govee Bluetooth LED lights over BLE.

Pair a light once with 'govee-ctl devices add <name> <address>', then
address it by name:

  govee-ctl on --device desk
  govee-ctl color ff8800 --device desk

When only one device is paired, the --device flag may be omitted.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("govee-ctl %s\n", version.Full())
	},
}
