// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Loading microscopy frames into float32 buffers, and saving detection results
package imgio

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/mlnoga/multiscale/internal/octave"
)

// Loads a grayscale frame from a TIFF, PNG, JPEG or GIF file.
// Color images are converted to luminance; values are scaled into [0,1]
func LoadFrame(fileName string) (data []float32, width int, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return DecodeFrame(f)
}

// Decodes a grayscale frame from a reader, in any registered image format
func DecodeFrame(r io.Reader) (data []float32, width int, err error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("imgio: decoding image: %w", err)
	}
	bounds := img.Bounds()
	width = bounds.Dx()
	height := bounds.Dy()
	data = make([]float32, width*height)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			data[i] = float32(g.Y) / 65535
			i++
		}
	}
	return data, width, nil
}

// Saves an image as PNG or TIFF depending on the file extension
func SaveImage(fileName string, img image.Image) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	if strings.HasSuffix(strings.ToLower(fileName), ".tif") ||
		strings.HasSuffix(strings.ToLower(fileName), ".tiff") {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return png.Encode(w, img)
}

// Prints the given centers as CSV
func WriteCentersCSV(w io.Writer, centers []octave.Center) error {
	if _, err := fmt.Fprintln(w, "X,Y,R,Intensity"); err != nil {
		return err
	}
	for _, c := range centers {
		if _, err := fmt.Fprintf(w, "%g,%g,%g,%g\n", c.X, c.Y, c.R, c.Intensity); err != nil {
			return err
		}
	}
	return nil
}

// Reads centers back from CSV written by WriteCentersCSV
func ReadCentersCSV(r io.Reader) ([]octave.Center, error) {
	scanner := bufio.NewScanner(r)
	var centers []octave.Center
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if line == 1 || text == "" { // header
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("imgio: line %d: want 4 fields, got %d", line, len(fields))
		}
		var vals [4]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
			if err != nil {
				return nil, fmt.Errorf("imgio: line %d field %d: %w", line, i+1, err)
			}
			vals[i] = v
		}
		centers = append(centers, octave.Center{
			X: float32(vals[0]), Y: float32(vals[1]), R: float32(vals[2]), Intensity: float32(vals[3]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return centers, nil
}
