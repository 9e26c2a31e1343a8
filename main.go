// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"tonewatch/cmd"
	"tonewatch/internal/audio"
	"tonewatch/internal/config"
	"tonewatch/internal/detector"
	"tonewatch/internal/log"
	"tonewatch/internal/transport"
	"tonewatch/internal/transport/udp"
	"tonewatch/internal/tui"
	"tonewatch/pkg/build"
)

// main runs in three phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information and parse the command line
//   - Execute one-off commands (list, decode)
//   - Load the tunables and build the detector
//
// 2. Concurrent Phase (Hot Path):
//   - Start the input stream; every callback runs one detector frame
//   - Publish snapshots and run the monitor (or wait for a signal)
//
// 3. Shutdown Phase (Cold Path):
//   - Stop recording, publishers and the stream
//   - Save the tunables
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Debugf("%v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}
	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	defer log.Sync()

	params, err := config.LoadTunables(cfg.Tunables.File, cfg.Params())
	if err != nil {
		log.Warnf("Tunables %s: %v", cfg.Tunables.File, err)
	}

	if cfg.Command == cmd.CommandDecode {
		if err := decode(cfg, params); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	// One real-time thread for the audio callback, one for UI and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer audio.Terminate()

	if cfg.Command == cmd.CommandList {
		if err := audio.ListDevices(os.Stdout); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if cfg.PickDevice {
		devices, err := audio.HostDevices()
		if err != nil {
			log.Fatalf("%v", err)
		}
		d, err := tui.PickDevice(devices)
		if err != nil {
			log.Fatalf("%v", err)
		}
		cfg.Audio.InputDevice = d.ID
	}

	tunables := detector.NewTunables(params, cfg.Audio.SampleRate)
	det, err := detector.New(cfg.DetectorOptions(), tunables)
	if err != nil {
		log.Fatalf("%v", err)
	}

	engine, err := audio.NewEngine(cfg, det)
	if err != nil {
		log.Fatalf("%v", err)
	}

	publisher, err := newPublisher(cfg, det)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// The first callback after StartInputStream begins the hot path.
	if err := engine.StartInputStream(); err != nil {
		log.Fatalf("%v", err)
	}

	if cfg.Recording.Enabled {
		path, err := audio.RecordingPath(cfg.Recording.OutputDir, cfg.Recording.OutputFile, time.Now())
		if err == nil {
			err = engine.StartRecording(path)
		}
		if err != nil {
			log.Errorf("Recording disabled: %v", err)
		}
	}

	if publisher != nil {
		publisher.Start()
	}

	if cfg.Headless {
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		log.Infof("Running headless, Ctrl+C to stop")
		<-done
	} else {
		runMonitor(cfg, det)
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorf("Error closing transports: %v", err)
		}
	}
	if err := engine.Close(); err != nil {
		log.Errorf("Error closing audio engine: %v", err)
	}
	if err := config.SaveTunables(cfg.Tunables.File, tunables.Load()); err != nil {
		log.Errorf("Error saving tunables: %v", err)
	}

	s := det.Snapshot()
	if len(s.Text) > 0 {
		fmt.Printf("%s\n", s.Text)
	}
}

// runMonitor owns the terminal until the user quits. Logging moves to the
// configured file meanwhile.
func runMonitor(cfg *config.Config, det *detector.Detector) {
	f, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warnf("Cannot open %s, log output may garble the monitor: %v", cfg.UI.LogFile, err)
	} else {
		log.SetOutput(f)
		defer func() {
			log.SetOutput(os.Stderr)
			f.Close()
		}()
	}

	header := fmt.Sprintf("device %d, %sHz, %d-point frames, %s/bin",
		cfg.Audio.InputDevice,
		humanize.SIWithDigits(det.SampleRate(), 1, ""),
		det.FrameSize(),
		humanize.FtoaWithDigits(det.SampleRate()/float64(det.FrameSize()), 2)+" Hz")
	if err := tui.Run(tui.NewMonitor(det, cfg.UI.RefreshInterval, header)); err != nil {
		log.Errorf("Monitor: %v", err)
	}
}

// newPublisher returns nil when no transport is configured.
func newPublisher(cfg *config.Config, det *detector.Detector) (*transport.Publisher, error) {
	var transports []transport.Transport
	tc := cfg.Transport

	if tc.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(tc.WebSocketAddr)
		if err != nil {
			return nil, err
		}
		transports = append(transports, ws)
	}
	if tc.UDPEnabled {
		u, err := udp.NewTransport(tc.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		transports = append(transports, u)
	}
	if tc.LogSnapshots || cfg.Headless {
		transports = append(transports, transport.NewLoggingTransport())
	}

	if len(transports) == 0 {
		return nil, nil
	}
	return transport.NewPublisher(tc.PublishInterval, det, transports...)
}

// decode replays a WAV file and prints what was decoded.
func decode(cfg *config.Config, params detector.Params) error {
	start := time.Now()
	res, err := audio.DecodeFile(cfg.InputFile, cfg, params)
	if err != nil {
		return err
	}
	s := res.Snapshot

	fmt.Printf("Symbols: %s\n", s.Symbols)
	fmt.Printf("Text:    %s\n", s.Text)
	fmt.Printf("Speed:   %.1f WPM (dot %.0f ms)\n", s.WPM, s.EstimatedDotMs)
	fmt.Printf("Audio:   %s at %sHz, %s frames, decoded in %s\n",
		res.Duration.Round(time.Millisecond),
		humanize.SIWithDigits(res.SampleRate, 1, ""),
		humanize.Comma(int64(res.Frames)),
		time.Since(start).Round(time.Millisecond))
	return nil
}
