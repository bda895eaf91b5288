// Package stream sends G-code to the firmware over its half-duplex line
// protocol: one line out, wait for "ok", repeat. It also builds the raw
// job images the firmware reads off the SD card.
package stream

import (
	"bufio"
	"encoding/binary"
	"io"
	"strings"
)

// Result summarizes one streaming session.
type Result struct {
	Lines  int // lines sent
	Errors int // error replies received
}

// Send streams src line by line, releasing the next line only after the
// firmware acknowledges the previous one. Blank and comment-only lines are
// skipped on the host side so they never cost a serial round trip.
// log receives every non-ok reply; may be nil.
func Send(port io.ReadWriter, src io.Reader, log func(string)) (Result, error) {
	in := bufio.NewScanner(src)
	replies := bufio.NewReader(port)
	var res Result

	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if _, err := io.WriteString(port, line+"\n"); err != nil {
			return res, err
		}
		res.Lines++

		for {
			reply, err := replies.ReadString('\n')
			if err != nil {
				return res, err
			}
			reply = strings.TrimSpace(reply)
			if reply == "ok" {
				break
			}
			if strings.HasPrefix(reply, "error:") {
				res.Errors++
			}
			if log != nil && reply != "" {
				log(reply)
			}
		}
	}
	return res, in.Err()
}

// SD job image layout, shared with the firmware: one header sector with a
// magic tag and payload length, then the raw G-code text.
const (
	JobMagic   = "PLOTJOB1"
	SectorSize = 512
)

// WriteJobImage writes the raw job image for gcode. The image is written
// to the card at the firmware's job sector (dd seek=2048).
func WriteJobImage(w io.Writer, gcode []byte) error {
	var header [SectorSize]byte
	copy(header[:], JobMagic)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(gcode)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(gcode)
	return err
}
