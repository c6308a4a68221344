package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/fingerprint"
	"github.com/urfave/cli/v3"
)

var (
	ErrFilesRequired = errors.New("at least one FILE argument required")
	ErrPairRequired  = errors.New("exactly two FILE arguments required")
)

func main() {
	app := &cli.Command{
		Name:  "fingerprint",
		Usage: "Compute and compare image fingerprints",
		Commands: []*cli.Command{
			{
				Name:      "hash",
				Usage:     "Print the digest and perceptual hash of each file",
				ArgsUsage: "FILE...",
				Action:    handleHash,
			},
			{
				Name:      "distance",
				Usage:     "Print the Hamming distance between two images",
				ArgsUsage: "FILE FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "threshold",
						Usage: "Report whether the pair counts as a near duplicate",
						Value: 8,
					},
				},
				Action: handleDistance,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// handleHash handles the 'hash' command.
func handleHash(_ context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return ErrFilesRequired
	}

	for _, path := range c.Args().Slice() {
		fp, err := fingerprintFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", fp.ExactDigest, fp.PerceptualHash, fp.PerceptualPrefix, path)
	}
	return nil
}

// handleDistance handles the 'distance' command.
func handleDistance(_ context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return ErrPairRequired
	}

	a, err := fingerprintFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	b, err := fingerprintFile(c.Args().Get(1))
	if err != nil {
		return err
	}

	distance, err := fingerprint.Distance(a.PerceptualHash, b.PerceptualHash)
	if err != nil {
		return err
	}

	switch {
	case a.ExactDigest == b.ExactDigest:
		fmt.Printf("%d\texact\n", distance)
	case distance <= int(c.Int("threshold")):
		fmt.Printf("%d\tnear\n", distance)
	default:
		fmt.Printf("%d\tdistinct\n", distance)
	}
	return nil
}

var extensionMIME = map[string]string{
	".png":  fingerprint.MIMEPNG,
	".jpg":  fingerprint.MIMEJPEG,
	".jpeg": fingerprint.MIMEJPEG,
	".webp": fingerprint.MIMEWebP,
}

// fingerprintFile reads an image and picks its MIME type from the extension.
func fingerprintFile(path string) (types.Fingerprint, error) {
	mimeType, ok := extensionMIME[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return types.Fingerprint{}, fmt.Errorf("%w: unsupported extension %q", types.ErrValidation, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Fingerprint{}, err
	}

	return fingerprint.Generate(data, mimeType)
}
