// Command mount opens a myfs image and serves a small line-oriented shell
// over it (open/read/stat/close), standing in for the real mount driver
// spec.md §6 describes as an external collaborator. It keeps an open-file
// table of handle -> inode backed by myfs/internal/inodecache, the same
// role original_source/inode_map.c's hash table plays for the reference
// mount layer, so repeated reads against the same open file don't re-read
// the inode record on every call.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/internal/inodecache"
	"github.com/dargueta/myfs/ops"
)

// session is the open-file table for one mounted image: a monotonically
// increasing handle counter plus the decoded-inode cache it backs.
type session struct {
	fs       *ops.FileSystem
	cache    *inodecache.Cache
	nextFile uint32
}

func (s *session) open(path string) (uint32, error) {
	attr, err := s.fs.GetAttr(path)
	if err != nil {
		return 0, err
	}
	s.nextFile++
	handle := s.nextFile
	s.cache.Insert(handle, attr.InodeNum, attr.Inode)
	return handle, nil
}

func (s *session) read(handle uint32, off uint64, length int) (string, error) {
	_, n, ok := s.cache.Get(handle)
	if !ok {
		return "", fmt.Errorf("no such open file handle %d", handle)
	}

	buf := make([]byte, length)
	read, err := s.fs.ReadData(n, buf, off)
	if err != nil {
		return "", err
	}
	return string(buf[:read]), nil
}

func (s *session) close(handle uint32) {
	s.cache.Remove(handle)
}

func runShell(c *cli.Context) error {
	devPath := c.String("dev")
	if devPath == "" {
		return cli.Exit("mount: --dev=<path> is required", 1)
	}

	f, err := os.OpenFile(devPath, os.O_RDWR, 0644)
	if err != nil {
		return cli.Exit(fmt.Sprintf("mount: %s", err), 1)
	}
	defer f.Close()

	var img device.Image = f
	fs, err := ops.Mount(img)
	if err != nil {
		return cli.Exit(fmt.Sprintf("mount: %s", err), 1)
	}

	sess := &session{fs: fs, cache: inodecache.New()}
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("myfs mount shell; commands: open PATH, read HANDLE OFFSET LENGTH, close HANDLE, stat PATH, quit")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "open":
			if len(fields) != 2 {
				fmt.Println("usage: open PATH")
				continue
			}
			handle, err := sess.open(fields[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("handle", handle)
		case "read":
			if len(fields) != 4 {
				fmt.Println("usage: read HANDLE OFFSET LENGTH")
				continue
			}
			handle, _ := strconv.ParseUint(fields[1], 10, 32)
			off, _ := strconv.ParseUint(fields[2], 10, 64)
			length, _ := strconv.Atoi(fields[3])
			data, err := sess.read(uint32(handle), off, length)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(data)
		case "close":
			if len(fields) != 2 {
				fmt.Println("usage: close HANDLE")
				continue
			}
			handle, _ := strconv.ParseUint(fields[1], 10, 32)
			sess.close(uint32(handle))
		case "stat":
			if len(fields) != 2 {
				fmt.Println("usage: stat PATH")
				continue
			}
			attr, err := sess.fs.GetAttr(fields[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("inode=%d mode=%o size=%d nlinks=%d\n",
				attr.InodeNum, attr.Inode.Mode, attr.Inode.Size, attr.Inode.NLinks)
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
	return scanner.Err()
}

func main() {
	app := &cli.App{
		Name:  "mount",
		Usage: "serve a line-oriented shell over a myfs image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dev",
				Usage: "path to the backing image file",
			},
		},
		Action: runShell,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
