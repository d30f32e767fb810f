// Command receiver is the CLI front end for the audio DSP core: it
// connects to a ka9q_ubersdr-style radio daemon, tunes it, wires the
// configured effect chain, and plays the result through the local audio
// device while serving a small local status/control HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/hfdsp/receivercore/internal/audio"
	"github.com/hfdsp/receivercore/internal/localapi"
	"github.com/hfdsp/receivercore/internal/protocol"
	"github.com/hfdsp/receivercore/internal/session"
)

func main() {
	urlFlag := flag.String("u", "", "Full base URL of the radio daemon (e.g., http://host:8080)")
	hostFlag := flag.String("H", "localhost", "Server hostname (ignored if -u is provided)")
	portFlag := flag.Int("p", 8080, "Server port (ignored if -u is provided)")
	sslFlag := flag.Bool("s", false, "Use TLS/WSS (ignored if -u is provided)")

	frequencyFlag := flag.Int("f", 0, "Frequency in Hz (e.g., 14074000 for 14.074 MHz)")
	modeFlag := flag.String("m", "", "Demodulation mode (usb, lsb, am, sam, cwu, cwl, fm, nfm)")
	bandwidthFlag := flag.String("b", "", "Bandwidth in format low:high (e.g., -5000:5000); defaults to the mode's table entry")

	settingsFlag := flag.String("settings", defaultSettingsPath(), "Path to the persisted effect-settings JSON file")
	saveFlag := flag.Bool("save", true, "Persist effect parameter changes to -settings as they're made")
	apiFlag := flag.String("api", "127.0.0.1:8091", "Local status/control HTTP API listen address")

	volumeFlag := flag.Float64("volume", 0.7, "Output volume, 0-1")

	eqFlag := flag.String("eq", "", "EQ preset to apply at startup (voice, cw)")
	bandpassFlag := flag.Bool("bandpass", false, "Enable the cascaded bandpass filter")
	bandpassCenterFlag := flag.Float64("bandpass-center", 1500, "Bandpass center, Hz")
	bandpassWidthFlag := flag.Float64("bandpass-width", 500, "Bandpass width, Hz")
	notchFlag := flag.String("notch", "", "Comma-separated center:width Hz pairs for up to 5 notches (e.g., 1000:50,2500:80)")
	compressorFlag := flag.Bool("compressor", false, "Enable the dynamics compressor")
	nrFlag := flag.Bool("nr", false, "Enable FFT overlap-add spectral noise reduction")
	nrStrengthFlag := flag.Float64("nr-strength", 0.5, "NR strength, 0-1")
	nrFloorFlag := flag.Float64("nr-floor", -20, "NR spectral floor, dB, -40-0")
	nrAdaptFlag := flag.Float64("nr-adapt", 1.0, "NR noise-profile adapt rate, percent")
	squelchFlag := flag.Bool("squelch", false, "Enable the RMS-gated squelch")
	stereoFlag := flag.Bool("stereo", false, "Enable the stereo virtualiser")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "receiver: audio DSP core for a ka9q_ubersdr-style radio daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Listen to 14.074 MHz USB with the bandpass and compressor on\n")
		fmt.Fprintf(os.Stderr, "  %s -f 14074000 -m usb -bandpass -compressor\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Connect to a specific daemon with a custom bandwidth\n")
		fmt.Fprintf(os.Stderr, "  %s -u http://radio.example.com:8080 -f 7100000 -m lsb -b -2700:-50\n", os.Args[0])
	}

	flag.Parse()

	if *frequencyFlag == 0 {
		fmt.Fprintln(os.Stderr, "Error: -f/--frequency is required")
		flag.Usage()
		os.Exit(1)
	}

	mode := protocol.Mode(strings.ToLower(*modeFlag))
	if !mode.IsValid() {
		fmt.Fprintf(os.Stderr, "Error: invalid mode %q\n", *modeFlag)
		os.Exit(1)
	}

	bwLow, bwHigh, err := parseBandwidth(*bandwidthFlag, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	baseURL := *urlFlag
	if baseURL == "" {
		scheme := "http"
		if *sslFlag {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s:%d", scheme, *hostFlag, *portFlag)
	}

	sess := session.New(session.Config{SettingsPath: *settingsFlag})
	sess.SettingsStore().SetSaveEnabled(*saveFlag)

	_ = sess.SetEffectParam(string(audio.EffectGain), "level", *volumeFlag)

	if *eqFlag != "" {
		if err := sess.ApplyPeakingPreset(*eqFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		_ = sess.SetEffectEnabled("peaking", true)
	}

	if *bandpassFlag {
		_ = sess.SetEffectParam("bandpass", "center", *bandpassCenterFlag)
		_ = sess.SetEffectParam("bandpass", "width", *bandpassWidthFlag)
		_ = sess.SetEffectEnabled("bandpass", true)
	}

	if *notchFlag != "" {
		if err := applyNotches(sess, *notchFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		_ = sess.SetEffectEnabled("notch", true)
	}

	if *compressorFlag {
		_ = sess.SetEffectEnabled("compressor", true)
	}

	if *nrFlag {
		_ = sess.SetEffectParam("nr", "strength", *nrStrengthFlag)
		_ = sess.SetEffectParam("nr", "floor", *nrFloorFlag)
		_ = sess.SetEffectParam("nr", "adaptRate", *nrAdaptFlag)
		_ = sess.SetEffectEnabled("nr", true)
	}

	if *squelchFlag {
		_ = sess.SetEffectEnabled("squelch", true)
	}

	if *stereoFlag {
		_ = sess.SetEffectEnabled("stereo", true)
	}

	api := localapi.NewServer(*apiFlag, sess)
	go func() {
		if err := api.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "receiver: local API: %v\n", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sess.Connect(ctx, baseURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := sess.Tune(*frequencyFlag, mode, bwLow, bwHigh); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
	_ = api.Close()
	_ = sess.Close()
}

// parseBandwidth parses a "low:high" flag value, falling back to mode's
// default bandwidth range (§6) when raw is empty.
func parseBandwidth(raw string, mode protocol.Mode) (low, high int, err error) {
	if raw == "" {
		return protocol.DefaultBandwidthFor(mode)
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bandwidth must be in format 'low:high' (e.g., '-5000:5000')")
	}
	low, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid bandwidth low value: %w", err)
	}
	high, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid bandwidth high value: %w", err)
	}
	return low, high, nil
}

// applyNotches parses a comma-separated list of center:width Hz pairs and
// adds each as a notch slot.
func applyNotches(sess *session.Session, raw string) error {
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.Split(pair, ":")
		if len(parts) != 2 {
			return fmt.Errorf("invalid notch %q, want center:width", pair)
		}
		center, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return fmt.Errorf("invalid notch center %q: %w", parts[0], err)
		}
		width, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return fmt.Errorf("invalid notch width %q: %w", parts[1], err)
		}
		if _, err := sess.AddNotch(center, width); err != nil {
			return err
		}
	}
	return nil
}

// defaultSettingsPath returns ~/.config/receivercore/settings.json, or a
// relative fallback if the home directory can't be resolved.
func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "receivercore-settings.json"
	}
	return filepath.Join(home, ".config", "receivercore", "settings.json")
}
