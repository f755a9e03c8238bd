// Command fsinfo prints an image's main block fields and derived geometry,
// matching the field dump original_source/fsinfo.c and main.c produce for
// the reference implementation.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/ops"
)

func printInfo(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("fsinfo: an image path is required", 1)
	}

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("fsinfo: %s", err), 1)
	}
	defer f.Close()

	var img device.Image = f
	sys, err := ops.Mount(img)
	if err != nil {
		return cli.Exit(fmt.Sprintf("fsinfo: %s", err), 1)
	}

	fs := sys.FS
	fmt.Printf("inode_count_limit:      %d\n", fs.InodeCountLimit)
	fmt.Printf("inode_count:            %d\n", fs.InodeCount)
	fmt.Printf("block_count:            %d\n", fs.BlockCount)
	fmt.Printf("data_block_count:       %d\n", fs.DataBlockCount)
	fmt.Printf("free_data_block_count:  %d\n", fs.FreeDataBlockCount)
	fmt.Printf("block_size:             %d\n", fs.BlockSize)
	fmt.Println()
	fmt.Printf("inode_bitmap_pos:       %d\n", fs.InodeBitmapPos)
	fmt.Printf("data_bitmap_pos:        %d\n", fs.DataBitmapPos)
	fmt.Printf("inodes_pos:             %d\n", fs.InodesPos)
	fmt.Printf("blocks_pos:             %d\n", fs.BlocksPos)
	return nil
}

func main() {
	app := &cli.App{
		Name:  "fsinfo",
		Usage: "print a myfs image's superblock fields and derived geometry",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "read and print an image's main block",
				ArgsUsage: "IMAGE_FILE",
				Action:    printInfo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
