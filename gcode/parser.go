package gcode

import "plotter/config"

// MaxLineLength is the longest accepted G-code line. Longer transport lines
// are rejected before they reach the decoder.
const MaxLineLength = 64

// Parse decodes one text line into a Command. The line is stripped of its
// ';' comment suffix, trimmed of leading whitespace and upper-cased before
// the instruction code is read. Unrecognized codes decode to Unknown.
func Parse(raw string) Command {
	line := normalize(raw)
	if len(line) == 0 {
		return Unknown{Line: raw}
	}

	letter := line[0]
	num, ok := parseInstructionNumber(line[1:])
	if !ok {
		return Unknown{Line: raw}
	}

	switch letter {
	case 'G':
		switch num {
		case 0, 1:
			var m Move
			m.X, m.HasX = floatParam(line, 'X')
			m.Y, m.HasY = floatParam(line, 'Y')
			m.Z, m.HasZ = floatParam(line, 'Z')
			m.F, m.HasF = floatParam(line, 'F')
			return m
		case 28:
			h := Home{
				X: hasLetter(line[1:], 'X'),
				Y: hasLetter(line[1:], 'Y'),
				Z: hasLetter(line[1:], 'Z'),
			}
			if !h.X && !h.Y && !h.Z {
				h.All = true
			}
			return h
		case 90:
			return SetAbsolute{}
		case 91:
			return SetRelative{}
		case 92:
			var s SetPosition
			s.X, s.HasX = floatParam(line, 'X')
			s.Y, s.HasY = floatParam(line, 'Y')
			s.Z, s.HasZ = floatParam(line, 'Z')
			return s
		}
	case 'M':
		switch num {
		case 0:
			return Stop{}
		case 24:
			return Resume{}
		case 25:
			return Pause{}
		case 84:
			var d DisableMotors
			d.TimeoutS, d.HasTimeout = floatParam(line, 'S')
			return d
		case 114:
			return ReportPosition{}
		case 115:
			return ReportFirmwareInfo{}
		case 119:
			return ReportEndstops{}
		case 220:
			var s SetSpeedFactor
			s.Percent, s.HasPercent = floatParam(line, 'S')
			return s
		case 410:
			return Quickstop{}
		case 503:
			return ReportSettings{}
		case 999:
			// Bare M999 exercises the pen axis.
			t := RawAxisTest{Axis: config.Z}
			if hasLetter(line[1:], 'X') {
				t.Axis = config.X
			} else if hasLetter(line[1:], 'Y') {
				t.Axis = config.Y
			}
			return t
		}
	}

	return Unknown{Line: raw}
}

// Blank reports whether the line carries no instruction at all (empty, only
// whitespace, or only a comment). Callers distinguish blank lines from
// unknown instructions when rejecting.
func Blank(raw string) bool {
	return len(normalize(raw)) == 0
}

// normalize strips the comment suffix and leading whitespace and upper-cases
// the remainder.
func normalize(raw string) []byte {
	end := len(raw)
	for i := 0; i < len(raw); i++ {
		if raw[i] == ';' {
			end = i
			break
		}
	}

	start := 0
	for start < end && isSpace(raw[start]) {
		start++
	}

	line := make([]byte, 0, end-start)
	for i := start; i < end; i++ {
		line = append(line, toUpper(raw[i]))
	}
	return line
}

// parseInstructionNumber reads the integer immediately after the instruction
// letter. A letter with no number is not a valid instruction.
func parseInstructionNumber(s []byte) (int, bool) {
	i := 0
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i == 0 {
		return 0, false
	}
	return n, true
}

// floatParam scans for the address letter anywhere in the line and parses
// the number following it, tolerating whitespace or an '=' in between.
// A letter with no number reports absent, never zero.
func floatParam(line []byte, address byte) (float64, bool) {
	for i := 1; i < len(line); i++ {
		if line[i] != address {
			continue
		}
		j := i + 1
		for j < len(line) && (isSpace(line[j]) || line[j] == '=') {
			j++
		}
		if v, ok := parseFloat(line[j:]); ok {
			return v, true
		}
		return 0, false
	}
	return 0, false
}

// hasLetter reports whether the address letter appears anywhere after the
// instruction code (used for bare axis flags like "G28 X").
func hasLetter(s []byte, address byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == address {
			return true
		}
	}
	return false
}

// parseFloat parses a decimal number at the start of s. Hand-rolled to keep
// the decoder allocation-free on the MCU.
func parseFloat(s []byte) (float64, bool) {
	i := 0
	negative := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		negative = s[i] == '-'
		i++
	}

	start := i
	value := 0.0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		value = value*10 + float64(s[i]-'0')
		i++
	}
	intDigits := i - start

	if i < len(s) && s[i] == '.' {
		i++
		div := 1.0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			value = value*10 + float64(s[i]-'0')
			div *= 10
			i++
		}
		if i-start == intDigits+1 && intDigits == 0 {
			return 0, false // bare "." or "-."
		}
		value /= div
	} else if intDigits == 0 {
		return 0, false
	}

	if negative {
		value = -value
	}
	return value, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
