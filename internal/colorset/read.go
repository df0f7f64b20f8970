package colorset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/jszwec/csvutil"

	"lutfit/internal/errs"
)

// Delimiters accepted between the channel values of a row.
const (
	Space     = ' '
	Comma     = ','
	Semicolon = ';'
	Tab       = '\t'
)

type row struct {
	R float64 `csv:"r"`
	G float64 `csv:"g"`
	B float64 `csv:"b"`
}

// ValidDelimiter reports whether d can separate channel values.
func ValidDelimiter(d rune) bool {
	switch d {
	case Space, Comma, Semicolon, Tab:
		return true
	}
	return false
}

// ReadFile reads one point per line from the named file.
func ReadFile(filename string, delim rune) ([]Point3, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	defer f.Close()

	points, err := ReadPoints(f, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return points, nil
}

// ReadPoints reads one point per line, three channel values separated by
// delim. Space means any run of whitespace. Blank lines are skipped.
func ReadPoints(r io.Reader, delim rune) ([]Point3, error) {
	if !ValidDelimiter(delim) {
		return nil, fmt.Errorf("%w: unsupported delimiter %q", errs.ErrConfig, delim)
	}

	// Rows are normalised to single-separator records, remembering the line
	// each came from. Whitespace runs become one tab.
	sep := delim
	if delim == Space {
		sep = Tab
	}
	var sb strings.Builder
	var lineNos []int
	scanner := bufio.NewScanner(r)
	ln := 0
	for scanner.Scan() {
		ln++
		str := strings.TrimSpace(scanner.Text())
		if str == "" {
			continue
		}
		var fields []string
		if delim == Space {
			fields = strings.Fields(str)
		} else {
			fields = strings.Split(str, string(delim))
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
		}
		sb.WriteString(strings.Join(fields, string(sep)))
		sb.WriteByte('\n')
		lineNos = append(lineNos, ln)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	cr := csv.NewReader(strings.NewReader(sb.String()))
	cr.Comma = sep
	cr.FieldsPerRecord = 3
	cr.ReuseRecord = true
	dec, err := csvutil.NewDecoder(cr, "r", "g", "b")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	points := make([]Point3, 0, len(lineNos))
	for {
		var rw row
		err := dec.Decode(&rw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", errs.ErrIO, sourceLine(err, cr, lineNos), err)
		}
		pt := Point3{rw.R, rw.G, rw.B}
		for _, v := range pt {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: line %d: channel value %v is not finite", errs.ErrIO, lineNos[len(points)], v)
			}
		}
		points = append(points, pt)
	}
	return points, nil
}

func sourceLine(err error, cr *csv.Reader, lineNos []int) int {
	var line int
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		line = pe.Line
	} else {
		line, _ = cr.FieldPos(0)
	}
	if line >= 1 && line <= len(lineNos) {
		return lineNos[line-1]
	}
	return line
}
