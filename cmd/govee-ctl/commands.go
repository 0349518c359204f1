package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwaldron/govee-ble/internal/ble"
	"github.com/mwaldron/govee-ble/internal/ble/protocol"
	"github.com/mwaldron/govee-ble/internal/config"
	"github.com/mwaldron/govee-ble/internal/light"
	"github.com/mwaldron/govee-ble/internal/logging"
)

// Command flags
var (
	deviceName  string
	configPath  string
	timeoutSecs int
	logLevel    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceName, "device", "", "Device name or address (optional when only one is paired)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.config/govee-ctl/config.yaml)")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 30, "Overall operation timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(brightnessCmd)
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(temperatureCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn the light on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, l *light.Light) error {
			return l.PowerOn(ctx)
		})
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn the light off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, l *light.Light) error {
			return l.PowerOff(ctx)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the light is on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, l *light.Light) error {
			on, err := l.IsPowerOn(ctx)
			if err != nil {
				return err
			}
			if on {
				fmt.Println("on")
			} else {
				fmt.Println("off")
			}
			return nil
		})
	},
}

var brightnessCmd = &cobra.Command{
	Use:   "brightness [percent]",
	Short: "Get or set brightness",
	Long: `Get or set the light's brightness as a percentage from 1 to 100.

Without an argument, queries the light and prints its current brightness.`,
	Example: `  # Read current brightness
  govee-ctl brightness --device desk

  # Half brightness
  govee-ctl brightness 50 --device desk`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, l *light.Light) error {
			if len(args) == 0 {
				percent, err := l.GetBrightness(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%d%%\n", percent)
				return nil
			}
			percent, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid brightness %q: %w", args[0], err)
			}
			return l.SetBrightness(ctx, percent)
		})
	},
}

var colorCmd = &cobra.Command{
	Use:   "color [hex | r g b]",
	Short: "Get or set the light's color",
	Long: `Get or set the light's static color.

Accepts either a 6-digit hex string or three decimal channel values.
Without arguments, queries the light and prints its current color.`,
	Example: `  # Read current color
  govee-ctl color --device desk

  # Warm orange, hex form
  govee-ctl color ff8800 --device desk

  # The same color as channel values
  govee-ctl color 255 136 0 --device desk`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args) == 1 || len(args) == 3 {
			return nil
		}
		return fmt.Errorf("expected a hex color or three channel values, got %d arguments", len(args))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, l *light.Light) error {
			switch len(args) {
			case 0:
				state, err := l.GetColor(ctx)
				if err != nil {
					return err
				}
				if state.Kelvin > 0 {
					fmt.Printf("#%s (%dK)\n", protocol.RGBToHex(state.R, state.G, state.B), state.Kelvin)
				} else {
					fmt.Printf("#%s\n", protocol.RGBToHex(state.R, state.G, state.B))
				}
				return nil
			case 1:
				return l.SetColorHex(ctx, args[0])
			default:
				channels := make([]uint8, 3)
				for i, arg := range args {
					v, err := strconv.Atoi(arg)
					if err != nil || v < 0 || v > 255 {
						return fmt.Errorf("invalid channel value %q (want 0-255)", arg)
					}
					channels[i] = uint8(v)
				}
				return l.SetColor(ctx, channels[0], channels[1], channels[2])
			}
		})
	},
}

var temperatureCmd = &cobra.Command{
	Use:   "temperature [kelvin]",
	Short: "Get or set the color temperature",
	Long: `Get or set the light's color temperature in kelvin.

Values outside the 2000-6500 range the hardware supports are clamped.
Without an argument, queries the light and prints the current temperature;
prints 0 when the light is in static color mode.`,
	Example: `  # Read current color temperature
  govee-ctl temperature --device desk

  # Warm white
  govee-ctl temperature 2700 --device desk`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, l *light.Light) error {
			if len(args) == 0 {
				kelvin, err := l.GetColorTemperature(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%dK\n", kelvin)
				return nil
			}
			kelvin, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid temperature %q: %w", args[0], err)
			}
			return l.SetColorTemperature(ctx, kelvin)
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Query and print the light's full state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLight(func(ctx context.Context, l *light.Light) error {
			if err := l.Refresh(ctx); err != nil {
				return err
			}
			s := l.State()

			power := "off"
			if s.Power {
				power = "on"
			}
			fmt.Printf("Power:      %s\n", power)
			fmt.Printf("Brightness: %d%%\n", s.Brightness)
			if s.Kelvin > 0 {
				fmt.Printf("Color:      #%s (%dK)\n", protocol.RGBToHex(s.R, s.G, s.B), s.Kelvin)
			} else {
				fmt.Printf("Color:      #%s\n", protocol.RGBToHex(s.R, s.G, s.B))
			}
			return nil
		})
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage paired devices",
}

var devicesAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Pair a device under a name",
	Example: `  # Linux/Windows: pair by MAC address
  govee-ctl devices add desk A4:C1:38:12:34:56

  # macOS: pair by CoreBluetooth UUID
  govee-ctl devices add desk 01234567-89AB-CDEF-0123-456789ABCDEF`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddDevice(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Paired %q (%s)\n", args[0], args[1])
		return nil
	},
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List paired devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Devices) == 0 {
			fmt.Println("No devices paired. Use 'govee-ctl devices add <name> <address>'.")
			return nil
		}
		for _, d := range cfg.Devices {
			fmt.Printf("%-16s %s\n", d.Name, d.Address)
		}
		return nil
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Forget a paired device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.RemoveDevice(args[0]) {
			return fmt.Errorf("no paired device matching %q", args[0])
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Removed %q\n", args[0])
		return nil
	},
}

func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config at %s: %w", path, err)
	}
	return cfg, path, nil
}

// resolveDevice picks the target light: the --device flag first (by name
// or literal address), otherwise the sole paired device.
func resolveDevice(cfg *config.Config) (config.Device, error) {
	if deviceName != "" {
		if d, ok := cfg.FindDevice(deviceName); ok {
			return d, nil
		}
		if err := config.ValidateAddress(deviceName); err == nil {
			return config.Device{Name: deviceName, Address: deviceName}, nil
		}
		return config.Device{}, fmt.Errorf("no paired device matching %q", deviceName)
	}
	switch len(cfg.Devices) {
	case 0:
		return config.Device{}, fmt.Errorf("no devices paired; use 'govee-ctl devices add' or the --device flag")
	case 1:
		return cfg.Devices[0], nil
	default:
		return config.Device{}, fmt.Errorf("%d devices paired; pick one with --device", len(cfg.Devices))
	}
}

func sessionOptions(sc config.SessionConfig) ble.SessionOptions {
	return ble.SessionOptions{
		ConnectAttempts: sc.ConnectRetries,
		ConnectDelay:    time.Duration(sc.ConnectRetryDelayMS) * time.Millisecond,
		SendAttempts:    sc.SendRetries,
		ResponseTimeout: time.Duration(sc.ResponseTimeoutSecs) * time.Second,
	}
}

// withLight wires config, logging, and a BLE session together, runs fn
// against the resolved light, and tears everything down afterwards.
func withLight(fn func(context.Context, *light.Light) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if level != "" {
		if err := logging.Initialize(level); err != nil {
			return err
		}
	} else if err := logging.InitializeFromEnv(); err != nil {
		return err
	}
	defer logging.Sync()

	device, err := resolveDevice(cfg)
	if err != nil {
		return err
	}

	registry := ble.NewRegistry(ble.NewBluetoothAdapter(), sessionOptions(cfg.Session))
	defer registry.Close()

	session := registry.Get(device.Address)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	return fn(ctx, light.New(session, device.Address))
}
