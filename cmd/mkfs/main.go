// Command mkfs formats a new myfs image, either at a caller-supplied byte
// size or at one of disks' named presets, following cmd/main.go's
// cli.App{Commands: [...]} shape in the teacher repo (dargueta/disko).
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/disks"
	"github.com/dargueta/myfs/ops"
)

func formatImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("mkfs: an image path is required", 1)
	}

	sizeBytes := c.Int64("size")
	if preset := c.String("preset"); preset != "" {
		geometry, err := disks.Lookup(preset)
		if err != nil {
			return cli.Exit(fmt.Sprintf("mkfs: %s", err), 1)
		}
		sizeBytes = geometry.SizeBytes
	}
	if sizeBytes <= 0 {
		return cli.Exit("mkfs: --size or --preset must be given and positive", 1)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return cli.Exit(fmt.Sprintf("mkfs: %s", err), 1)
	}
	defer f.Close()

	if err := f.Truncate(sizeBytes); err != nil {
		return cli.Exit(fmt.Sprintf("mkfs: %s", err), 1)
	}

	var img device.Image = f
	if _, err := ops.Format(img, sizeBytes); err != nil {
		return cli.Exit(fmt.Sprintf("mkfs: %s", err), 1)
	}

	fmt.Printf("formatted %s (%d bytes)\n", path, sizeBytes)
	return nil
}

func main() {
	app := &cli.App{
		Name:  "mkfs",
		Usage: "format a myfs image",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "create and format a new image file",
				ArgsUsage: "IMAGE_FILE",
				Action:    formatImage,
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "size",
						Usage: "image size in bytes",
					},
					&cli.StringFlag{
						Name:  "preset",
						Usage: fmt.Sprintf("named image size preset (one of: %v)", disks.Slugs()),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
