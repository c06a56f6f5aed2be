package app

import (
	"flag"
	"io"
	"testing"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("flightplot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags(t *testing.T) {
	config, err := parseFlags(newFlagSet(), []string{"-db", "flights.sqlite", "-f", "3", "-o", "out", "-format", "JPEG", "-width", "800", "-tz", "UTC"})
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	if config.DBPath != "flights.sqlite" || config.FlightID != 3 {
		t.Errorf("Unexpected source %s #%d", config.DBPath, config.FlightID)
	}
	if config.Format != ImageJPEG || config.OutputFile != "out.jpeg" {
		t.Errorf("Unexpected output %s (%s)", config.OutputFile, config.Format)
	}
	if config.Width != 800 || config.Height != defaultHeight {
		t.Errorf("Unexpected size %dx%d", config.Width, config.Height)
	}
	if config.TimeZone.String() != "UTC" {
		t.Errorf("Expected UTC, got %s", config.TimeZone)
	}
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := map[string][]string{
		"no db":          {"-f", "1", "-o", "out"},
		"no flight":      {"-db", "x", "-o", "out"},
		"no output":      {"-db", "x", "-f", "1"},
		"bad format":     {"-db", "x", "-f", "1", "-o", "out", "-format", "gif"},
		"too small":      {"-db", "x", "-f", "1", "-o", "out", "-height", "50"},
		"bad time zone":  {"-db", "x", "-f", "1", "-o", "out", "-tz", "Mars/Olympus"},
		"unknown option": {"-db", "x", "-f", "1", "-o", "out", "-theme", "jungle"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseFlags(newFlagSet(), args); err == nil {
				t.Errorf("Expected error")
			}
		})
	}
}
