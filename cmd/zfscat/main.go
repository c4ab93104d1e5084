// Package main provides zfscat, a command-line tool for inspecting a raw
// ZFS pool image: report the active uberblock, list a directory, or print
// a file's contents, all without mounting the pool.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gozfs/zfs"
	"github.com/gozfs/zfs/internal/blockio"
	"github.com/spf13/afero"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: zfscat [flags] <uber|ls|cat|info> <pool-image> [path]")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, image := args[0], args[1]

	bio, err := blockio.Open(afero.NewOsFs(), image)
	if err != nil {
		log.Fatalf("Failed to open pool image: %v", err)
	}
	defer func() {
		if err := bio.Close(); err != nil {
			log.Printf("Failed to close pool image: %v", err)
		}
	}()

	r, err := zfs.Open(bio)
	if err != nil {
		log.Fatalf("Failed to open pool: %v", err)
	}

	switch cmd {
	case "uber":
		ub := r.Uberblock()
		fmt.Printf("txg:       %d\n", ub.Txg)
		fmt.Printf("version:   %d\n", ub.Version)
		fmt.Printf("guid_sum:  %d\n", ub.GuidSum)
		fmt.Printf("timestamp: %d\n", ub.Timestamp)

	case "ls":
		path := ""
		if len(args) >= 3 {
			path = args[2]
		}
		names, err := r.Ls(path)
		if err != nil {
			log.Fatalf("ls %q: %v", path, err)
		}
		for _, name := range names {
			fmt.Println(name)
		}

	case "info":
		pairs, err := r.Label()
		if err != nil {
			log.Fatalf("info: %v", err)
		}
		if len(pairs) == 0 {
			fmt.Println("(no nvlist pairs decoded)")
		}
		for _, p := range pairs {
			fmt.Printf("%-16s %v\n", p.Name, p.Value)
		}

	case "cat":
		if len(args) < 3 {
			flag.Usage()
			os.Exit(2)
		}
		content, err := r.ReadFile(args[2])
		if err != nil {
			log.Fatalf("cat %q: %v", args[2], err)
		}
		os.Stdout.Write(content)

	default:
		flag.Usage()
		os.Exit(2)
	}
}
