// plotter-stream sends a G-code file to the plotter firmware, paced by its
// "ok" acknowledgments, or packs the file into a raw SD job image.
//
//	plotter-stream -device /dev/ttyACM0 drawing.gcode
//	plotter-stream -pack job.img drawing.gcode
package main

import (
	"flag"
	"fmt"
	"os"

	"plotter/host/serial"
	"plotter/host/stream"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "serial device path")
	baud    = flag.Int("baud", 115200, "baud rate (ignored for USB CDC)")
	pack    = flag.String("pack", "", "write an SD job image to this file instead of streaming")
	verbose = flag.Bool("verbose", false, "print every firmware reply")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: plotter-stream [flags] <gcode file>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *pack != "" {
		if err := packImage(*pack, flag.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (dd it to the card at seek=2048)\n", *pack)
		return
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	cfg.ReadTimeout = 0 // blocking; the firmware always answers
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	defer port.Close()
	port.Flush()

	fmt.Printf("streaming %s to %s\n", path, *device)
	res, err := stream.Send(port, f, func(reply string) {
		if *verbose || len(reply) < 2 || reply[:2] != "//" {
			fmt.Println(reply)
		}
	})
	fmt.Printf("sent %d lines, %d errors\n", res.Lines, res.Errors)
	return err
}

func packImage(out, in string) error {
	gcode, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return stream.WriteJobImage(f, gcode)
}
