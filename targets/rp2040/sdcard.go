//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/sdcard"

	"plotter/control"
)

// The stored plot job lives as a raw byte stream on the SD card, no
// filesystem: a fixed header sector at jobHeaderSector with a magic tag
// and the payload length, then the G-code text in the following sectors.
// The host-side streaming tool writes this layout.
const (
	jobHeaderSector = 2048 // leave room for a partition table up front
	jobMagic        = "PLOTJOB1"
	sectorSize      = 512
	maxJobBytes     = 64 * 1024 * 1024
)

// sdJobSource streams G-code lines off the card one sector at a time.
// Implements control.LineSource.
type sdJobSource struct {
	card   *sdcard.Device
	length int64 // payload bytes
	offset int64 // payload bytes consumed

	sector    [sectorSize]byte
	sectorPos int
	sectorLen int

	lineBuf [96]byte
}

// openStoredJob probes the card for a job header. Returns nil when no card
// is present or no job is stored.
func openStoredJob() *sdJobSource {
	card := sdcard.New(machine.SPI1, pinSDSck, pinSDTx, pinSDRx, pinSDCs)
	if err := card.Configure(); err != nil {
		return nil
	}

	s := &sdJobSource{card: &card}
	if _, err := card.ReadAt(s.sector[:], jobHeaderSector*sectorSize); err != nil {
		return nil
	}
	if string(s.sector[:len(jobMagic)]) != jobMagic {
		return nil
	}
	length := int64(s.sector[8]) | int64(s.sector[9])<<8 | int64(s.sector[10])<<16 | int64(s.sector[11])<<24
	if length <= 0 || length > maxJobBytes {
		return nil
	}
	s.length = length
	s.sectorPos = 0
	s.sectorLen = 0
	return s
}

// ReadLine returns the next line of the payload, terminator stripped.
// Lines longer than the scratch buffer are truncated; the decoder rejects
// them downstream.
func (s *sdJobSource) ReadLine() (string, bool) {
	n := 0
	for {
		b, ok := s.readByte()
		if !ok {
			if n == 0 {
				return "", false
			}
			return string(s.lineBuf[:n]), true
		}
		if b == '\n' || b == '\r' {
			if n == 0 {
				continue // swallow CRLF pairs and blank lines
			}
			return string(s.lineBuf[:n]), true
		}
		if n < len(s.lineBuf) {
			s.lineBuf[n] = b
			n++
		}
	}
}

func (s *sdJobSource) readByte() (byte, bool) {
	if s.offset >= s.length {
		return 0, false
	}
	if s.sectorPos >= s.sectorLen {
		base := jobHeaderSector*sectorSize + sectorSize + (s.offset/sectorSize)*sectorSize
		if _, err := s.card.ReadAt(s.sector[:], base); err != nil {
			return 0, false
		}
		s.sectorPos = int(s.offset % sectorSize)
		s.sectorLen = sectorSize
	}
	b := s.sector[s.sectorPos]
	s.sectorPos++
	s.offset++
	return b, true
}

func (s *sdJobSource) Progress() int {
	if s.length == 0 {
		return 100
	}
	return int(s.offset * 100 / s.length)
}

func (s *sdJobSource) Close() {}

// startStoredJob probes the card and starts the stored job if one exists.
func startStoredJob(ctl *control.Controller) {
	src := openStoredJob()
	if src == nil {
		return
	}
	ctl.StartJob(src)
}
