package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"

	defaultWidth  = 1200
	defaultHeight = 600
	minPlotSize   = 200
)

type ImageFormat string

type Config struct {
	DBPath     string
	FlightID   int64
	OutputFile string
	Format     ImageFormat
	Width      int
	Height     int
	TimeZone   *time.Location
	Verbose    bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Width:    defaultWidth,
		Height:   defaultHeight,
		TimeZone: time.Local,
	}
}

// NewConfigFromCLI parses the process command line
func NewConfigFromCLI() (*Config, error) {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat, timeZone string
	fs.StringVar(&c.DBPath, "db", "", "Path to the flights database file")
	fs.Int64Var(&c.FlightID, "f", 0, "Flight ID")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "format", ImagePNG, "Output image format. [png, jpeg]")
	fs.IntVar(&c.Width, "width", defaultWidth, "Width of the plot area in pixels")
	fs.IntVar(&c.Height, "height", defaultHeight, "Height of the plot area in pixels")
	fs.StringVar(&timeZone, "tz", "", "Time zone for the time labels, e.g. Australia/Sydney")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.FlightID <= 0 {
		err = errors.New("flight id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if c.Width < minPlotSize || c.Height < minPlotSize {
		err = fmt.Errorf("plot area must be at least %dx%d pixels", minPlotSize, minPlotSize)
	}

	if err == nil && timeZone != "" {
		if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
			err = fmt.Errorf("invalid time zone: %w", err)
		}
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
