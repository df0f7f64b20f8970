package cube

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"

	"lutfit/internal/errs"
	"lutfit/internal/grid"
)

// Format selects the LUT file layout.
type Format string

const (
	// FormatCube is the Resolve .cube layout.
	FormatCube Format = "cube"
	// FormatSPI3D is the Sony Imageworks .spi3d layout.
	FormatSPI3D Format = "spi3d"
)

// DefaultPrecision is the number of fractional digits written per value.
const DefaultPrecision = 8

// ParseFormat accepts "cube", "spi3d" and "spi".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "cube":
		return FormatCube, nil
	case "spi3d", "spi":
		return FormatSPI3D, nil
	}
	return "", fmt.Errorf("%w: unsupported lut format %q, use cube or spi3d", errs.ErrConfig, s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatSPI3D {
		return ".spi3d"
	}
	return ".cube"
}

// Options control how values are printed.
type Options struct {
	// Precision is the number of fractional digits.
	Precision int
	// Clamp limits every channel to [0,1].
	Clamp bool
}

func (o Options) format(buf []byte, c colorful.Color) []byte {
	if o.Clamp {
		c = c.Clamped()
	}
	buf = strconv.AppendFloat(buf, c.R, 'f', o.Precision, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, c.G, 'f', o.Precision, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, c.B, 'f', o.Precision, 64)
	return append(buf, '\n')
}

// WriteCube writes lut as a .cube file: a LUT_3D_SIZE header followed by
// one "r g b" line per grid point.
func WriteCube(w io.Writer, lut *Lut, opts Options) error {
	if err := lut.check(); err != nil {
		return err
	}
	writer := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(writer, "LUT_3D_SIZE %d\n", lut.Size); err != nil {
		return err
	}
	var buf []byte
	for _, v := range lut.Values {
		buf = opts.format(buf[:0], colorful.Color{R: v[0], G: v[1], B: v[2]})
		if _, err := writer.Write(buf); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// WriteSPI3D writes lut as a .spi3d file. Every line carries the red, green
// and blue lattice indices before the output color.
func WriteSPI3D(w io.Writer, lut *Lut, opts Options) error {
	if err := lut.check(); err != nil {
		return err
	}
	writer := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(writer, "SPILUT 1.0\n3 3\n%d %d %d\n", lut.Size, lut.Size, lut.Size); err != nil {
		return err
	}
	var buf []byte
	for i, v := range lut.Values {
		r, g, b := grid.Coords(lut.Size, i)
		buf = strconv.AppendInt(buf[:0], int64(r), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(g), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(b), 10)
		buf = append(buf, ' ')
		buf = opts.format(buf, colorful.Color{R: v[0], G: v[1], B: v[2]})
		if _, err := writer.Write(buf); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// Write writes lut in the given format.
func Write(w io.Writer, lut *Lut, format Format, opts Options) error {
	switch format {
	case FormatCube:
		return WriteCube(w, lut, opts)
	case FormatSPI3D:
		return WriteSPI3D(w, lut, opts)
	}
	return fmt.Errorf("%w: unsupported lut format %q", errs.ErrConfig, format)
}

// WriteFile writes lut to filename. The data goes to a temporary file in the
// same directory which replaces filename only once it is complete; on any
// failure the temporary file is removed and filename is left untouched.
func WriteFile(filename string, lut *Lut, format Format, opts Options) (err error) {
	if err := lut.check(); err != nil {
		return err
	}
	if format != FormatCube && format != FormatSPI3D {
		return fmt.Errorf("%w: unsupported lut format %q", errs.ErrConfig, format)
	}
	file, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	tmpName := file.Name()
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				file.Close()
			}
			os.Remove(tmpName)
		}
	}()

	if err = Write(file, lut, format, opts); err != nil {
		return fmt.Errorf("%w: write %s: %v", errs.ErrIO, filename, err)
	}
	closed = true
	if err = file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", errs.ErrIO, filename, err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if err = os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	return nil
}
