// SPDX-License-Identifier: MIT

// Package cmd parses the command line into a validated config.Config.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tonewatch/internal/config"
	"tonewatch/pkg/build"
)

// Command names stored in config.Config.Command.
const (
	CommandRun    = ""
	CommandList   = "list"
	CommandDecode = "decode"
)

type flagValues struct {
	configPath string
	device     int
	sampleRate float64
	frames     int
	channels   int
	lowLatency bool
	record     bool
	output     string
	params     string
	headless   bool
	pick       bool
	verbose    bool
}

// ParseArgs runs the CLI over args (without the program name). It returns
// a nil config and nil error when cobra handled the invocation itself
// (--help, --version).
func ParseArgs(args []string) (*config.Config, error) {
	info := build.GetBuildInfo()
	var (
		f   flagValues
		cfg *config.Config
	)

	// load reads the config file and layers explicitly set flags on top.
	load := func(c *cobra.Command, command string) error {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return err
		}
		applyFlags(c, &f, loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		loaded.Command = command
		cfg = loaded
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(c *cobra.Command, _ []string) error {
			return load(c, CommandRun)
		},
	}
	rootCmd.SetVersionTemplate(info.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return load(c, CommandList)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "decode FILE.wav",
		Short: "Run a WAV recording through the detector and print the decoded text",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if err := load(c, CommandDecode); err != nil {
				return err
			}
			cfg.InputFile = args[0]
			return nil
		},
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "",
		"YAML configuration file (default: ./tonewatch.yaml or ./config.yaml if present)")
	pf.StringVarP(&f.params, "params", "p", "",
		"Tunables file loaded at startup and saved on exit (default "+config.DefaultTunablesFile+")")
	pf.BoolVarP(&f.verbose, "verbose", "v", false,
		"Show verbose output (debug logging)")
	pf.IntVarP(&f.frames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Analysis frame size, a power of two")

	// Live capture only.
	rf := rootCmd.Flags()
	rf.IntVarP(&f.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	rf.Float64VarP(&f.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rf.IntVarP(&f.channels, "channels", "c", config.DefaultInputChannels,
		"Number of input channels to open; only the first is analysed")
	rf.BoolVarP(&f.lowLatency, "low-latency", "l", false,
		"Use the device's low input latency")
	rf.BoolVarP(&f.record, "record", "r", false,
		"Record the input stream to WAV")
	rf.StringVarP(&f.output, "output", "o", "",
		"Recording file name (default: output_dir/tonewatch-YYYYMMDD-HHMMSS.wav)")
	rf.BoolVar(&f.headless, "headless", false,
		"Run without the terminal monitor and log decoded output")
	rf.BoolVar(&f.pick, "pick-device", false,
		"Choose the input device from an interactive list")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies flags the user actually set onto cfg.
func applyFlags(c *cobra.Command, f *flagValues, cfg *config.Config) {
	changed := func(name string) bool {
		fl := c.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.frames
	}
	if changed("device") {
		cfg.Audio.InputDevice = f.device
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("channels") {
		cfg.Audio.InputChannels = f.channels
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("record") {
		cfg.Recording.Enabled = f.record
	}
	if changed("output") {
		cfg.Recording.OutputFile = f.output
	}
	if changed("params") {
		cfg.Tunables.File = f.params
	}
	cfg.Headless = f.headless
	cfg.PickDevice = f.pick
	cfg.Verbose = f.verbose
	if f.verbose {
		cfg.LogLevel = "debug"
	}
}
