package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bkbilly/libHikvision/hexline"
	log "github.com/sirupsen/logrus"
)

func main() {
	offset := flag.Int64("offset", 0, "The byte offset to start at.")
	length := flag.Int("length", 0, "The number of bytes to read.  If this is 0, then the rest of the file will be read.")
	width := flag.Int("width", hexline.DefaultWidth, "The number of bytes per line.")
	debug := flag.Bool("debug", false, "Enable debug output.")

	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	if len(flag.Args()) == 0 {
		fmt.Printf("Missing filename.\n")
		os.Exit(1)
	}
	if len(flag.Args()) > 1 {
		fmt.Printf("Too many arguments.\n")
		os.Exit(1)
	}
	filename := flag.Args()[0]

	log.Debugf("Filename: %s", filename)
	log.Debugf("Offset: %d, length: %d", *offset, *length)

	handle, err := os.Open(filename)
	if err != nil {
		fmt.Printf("Could not open file '%s': %v\n", filename, err)
		os.Exit(1)
	}
	defer handle.Close()

	if err := hexline.WriteRegion(os.Stdout, handle, *offset, *length, *width); err != nil {
		fmt.Printf("Could not read file: %v\n", err)
		os.Exit(1)
	}
}
