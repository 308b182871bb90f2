package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bigbag/dupico/internal/board"
	"github.com/bigbag/dupico/internal/config"
	"github.com/bigbag/dupico/internal/dump"
	"github.com/bigbag/dupico/internal/link"
	"github.com/bigbag/dupico/internal/logger"
	"github.com/bigbag/dupico/internal/protocol"
	"github.com/bigbag/dupico/internal/serial"
	"github.com/bigbag/dupico/internal/xfer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	portFlag    string
	baudFlag    int
	timeoutFlag time.Duration
	profileFlag string
	verboseFlag bool
	retriesFlag int

	pinsFlag    []int
	readsFlag   int
	outputFlag  string
	formatFlag  string
	baseFlag    uint32
	captureFlag string
	addressFlag []int
	dataFlag    []int
	hiFlag      []int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dupico",
		Short: "Control a dupico IC test board",
		Long: `dupico talks to a dupico socketed IC test board over its serial port.

It can switch socket power, drive and sample pins, run the board self-test
and stream captures (e.g. a ROM dump) off the board.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verboseFlag {
				log.SetLevel(log.DebugLevel)
			}
			logger.Set(log.StandardLogger())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "Serial port")
	rootCmd.PersistentFlags().IntVarP(&baudFlag, "baud", "b", protocol.DefaultBaudRate, "Baud rate")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", serial.DefaultReadTimeout, "Serial read timeout")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "Board profile (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().IntVar(&retriesFlag, "retries", 3, "Attempts for commands whose response was corrupted")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show board model and firmware version",
		Args:  cobra.NoArgs,
		RunE:  runInfo,
	}

	powerCmd := &cobra.Command{
		Use:       "power <on|off>",
		Short:     "Switch socket power",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE:      runPower,
	}

	writeCmd := &cobra.Command{
		Use:   "write <value>",
		Short: "Drive pins and read them back",
		Long: `Drive pins and read them back.

Without --pins the value is written to the board register as is. With --pins,
bit i of the value drives the i-th listed socket pin.`,
		Args: cobra.ExactArgs(1),
		RunE: runWrite,
	}
	writeCmd.Flags().IntSliceVar(&pinsFlag, "pins", nil, "Socket pins the value bits map to")

	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Sample pins",
		Args:  cobra.NoArgs,
		RunE:  runRead,
	}
	readCmd.Flags().IntSliceVar(&pinsFlag, "pins", nil, "Socket pins to assemble the value from")

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Run the board self-test",
		Args:  cobra.NoArgs,
		RunE:  runTest,
	}

	oscCmd := &cobra.Command{
		Use:   "osc",
		Short: "Detect oscillating pins",
		Args:  cobra.NoArgs,
		RunE:  runOsc,
	}
	oscCmd.Flags().IntVar(&readsFlag, "reads", 100, "Number of samples (1-255)")
	oscCmd.Flags().IntSliceVar(&pinsFlag, "pins", nil, "Socket pins to report on")

	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Stream a capture off the board",
		Long: `Stream a capture off the board with the block transfer protocol.

Pins come from a named capture of the profile (--capture) or from
--address, --data and --hi.`,
		Args: cobra.NoArgs,
		RunE: runCapture,
	}
	captureCmd.Flags().StringVarP(&outputFlag, "output", "o", "capture.bin", "Output file")
	captureCmd.Flags().StringVarP(&formatFlag, "format", "f", dump.FormatBinary, "Output format (bin, hex)")
	captureCmd.Flags().Uint32Var(&baseFlag, "base", 0, "Start address for hex output")
	captureCmd.Flags().StringVarP(&captureFlag, "capture", "c", "", "Capture name from the profile")
	captureCmd.Flags().IntSliceVar(&addressFlag, "address", nil, "Address pins, least significant first")
	captureCmd.Flags().IntSliceVar(&dataFlag, "data", nil, "Data pins, least significant first")
	captureCmd.Flags().IntSliceVar(&hiFlag, "hi", nil, "Pins held high during the capture")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dupico %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	rootCmd.AddCommand(infoCmd, powerCmd, writeCmd, readCmd, testCmd, oscCmd, captureCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadProfile returns the profile with command line flags applied over it.
func loadProfile(cmd *cobra.Command) (*config.Profile, error) {
	prof := config.Default()
	if profileFlag != "" {
		var err error
		if prof, err = config.Load(profileFlag); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("port") || prof.Port == "" {
		prof.Port = portFlag
	}
	if flags.Changed("baud") {
		prof.Baud = baudFlag
	}
	if flags.Changed("timeout") {
		prof.ReadTimeout = timeoutFlag
	}
	if prof.Port == "" {
		return nil, errors.New("no serial port given, use --port or the profile")
	}
	return prof, prof.Validate()
}

// session is an open connection to an identified board.
type session struct {
	board.Commands
	info    *board.Info
	port    *serial.Port
	profile *config.Profile
}

func (s *session) Close() error {
	return s.port.Close()
}

func connect(cmd *cobra.Command) (*session, error) {
	prof, err := loadProfile(cmd)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(prof.Port, prof.Baud, prof.ReadTimeout)
	if err != nil {
		return nil, err
	}

	entry := log.WithField("port", prof.Port)
	entry.Debugf("opened at %d baud", prof.Baud)

	cmds, info, err := board.Connect(link.New(port, prof.LinkOptions()...))
	if err != nil {
		port.Close()
		return nil, errors.Wrapf(err, "failed to connect on %s", prof.Port)
	}
	entry.WithField("model", info.Model).Debugf("firmware %s", info.Version)

	return &session{Commands: cmds, info: info, port: port, profile: prof}, nil
}

// retry repeats op while it fails softly.
func retry(name string, op func() error) error {
	var err error
	for attempt := 1; attempt <= max(retriesFlag, 1); attempt++ {
		if err = op(); err == nil || !protocol.IsSoft(err) {
			return err
		}
		log.Warnf("%s: attempt %d failed: %v", name, attempt, err)
	}
	return errors.Wrapf(err, "%s failed after %d attempts", name, max(retriesFlag, 1))
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("  Port:      %s\n", s.port.PortName())
	fmt.Printf("  Model:     %d\n", s.info.Model)
	fmt.Printf("  Firmware:  %s\n", s.info.Version)
	return nil
}

func runPower(cmd *cobra.Command, args []string) error {
	var on bool
	switch args[0] {
	case "on":
		on = true
	case "off":
	default:
		return errors.Errorf("expected on or off, got %q", args[0])
	}

	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var powered bool
	if err := retry("power", func() (err error) {
		powered, err = s.SetPower(on)
		return err
	}); err != nil {
		return err
	}

	if powered {
		fmt.Println("Socket power: on")
	} else {
		fmt.Println("Socket power: off")
	}
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return errors.Wrap(err, "invalid value")
	}

	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	raw := value
	if len(pinsFlag) > 0 {
		if raw, err = s.MapValueToPins(pinsFlag, value); err != nil {
			return err
		}
	}

	var back uint64
	if err := retry("write", func() (err error) {
		back, err = s.WritePins(raw)
		return err
	}); err != nil {
		return err
	}
	return printPins(s, back)
}

func runRead(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var value uint64
	if err := retry("read", func() (err error) {
		value, err = s.ReadPins()
		return err
	}); err != nil {
		return err
	}
	return printPins(s, value)
}

// printPins prints a register value, and its logical value when --pins is set.
func printPins(s *session, value uint64) error {
	fmt.Printf("Register: 0x%010X\n", value)
	if len(pinsFlag) == 0 {
		return nil
	}
	logical, err := s.MapPinsToValue(pinsFlag, value)
	if err != nil {
		return err
	}
	fmt.Printf("Pins %v: 0x%X\n", pinsFlag, logical)
	return nil
}

func runTest(cmd *cobra.Command, args []string) error {
	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var passed bool
	if err := retry("self-test", func() (err error) {
		passed, err = s.TestBoard()
		return err
	}); err != nil {
		return err
	}

	if !passed {
		return errors.New("board self-test failed")
	}
	fmt.Println("Board self-test passed")
	return nil
}

func runOsc(cmd *cobra.Command, args []string) error {
	if readsFlag < 1 || readsFlag > 0xFF {
		return errors.Errorf("reads must be between 1 and 255, got %d", readsFlag)
	}

	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var mask uint64
	if err := retry("osc-detect", func() (err error) {
		mask, err = s.DetectOscPins(readsFlag)
		return err
	}); err != nil {
		return err
	}
	return printPins(s, mask)
}

func capturePins(prof *config.Profile) (xfer.Pins, error) {
	if captureFlag != "" {
		c, err := prof.Capture(captureFlag)
		if err != nil {
			return xfer.Pins{}, err
		}
		return c.Pins(), nil
	}
	if len(addressFlag) == 0 && len(dataFlag) == 0 {
		return xfer.Pins{}, errors.New("no pins selected, use --capture or --address/--data")
	}
	return xfer.Pins{Address: addressFlag, Data: dataFlag, Hi: hiFlag}, nil
}

func runCapture(cmd *cobra.Command, args []string) error {
	if formatFlag != dump.FormatBinary && formatFlag != dump.FormatIntelHex {
		return errors.Errorf("unknown output format %q", formatFlag)
	}

	s, err := connect(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	pins, err := capturePins(s.profile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Capturing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	data, err := s.XferRead(ctx, pins, func(received int) {
		bar.Set(received)
	})
	bar.Finish()
	if err != nil {
		return err
	}

	if err := dump.WriteFile(outputFlag, formatFlag, baseFlag, data); err != nil {
		return err
	}
	fmt.Printf("\nCaptured %d bytes to %s\n", len(data), outputFlag)
	return nil
}
