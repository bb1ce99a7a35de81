package config

import (
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Output holds where the parse result is written
type Output struct {
	Path string
}

// Flags returns CLI flags for output configuration
func (c *Output) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output file path, '-' for stdout",
			Value:       "-",
			Destination: &c.Path,
			Sources:     cli.EnvVars("TENANTMAP_OUTPUT"),
		},
	}
}

// Write writes data to the configured destination
func (c *Output) Write(data []byte) error {
	if c.Path == "" || c.Path == "-" {
		return writeAll(os.Stdout, data)
	}
	if err := os.WriteFile(c.Path, data, 0644); err != nil {
		return goerr.Wrap(err, "failed to write output", goerr.V("path", c.Path))
	}
	return nil
}

func writeAll(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return goerr.Wrap(err, "failed to write output")
	}
	return nil
}
