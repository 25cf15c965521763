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


package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	"github.com/mlnoga/multiscale/internal/batch"
	"github.com/mlnoga/multiscale/internal/imgio"
	"github.com/mlnoga/multiscale/internal/logf"
	"github.com/mlnoga/multiscale/internal/multiscale"
	"github.com/mlnoga/multiscale/internal/octave"
	"github.com/mlnoga/multiscale/internal/render"
	"github.com/mlnoga/multiscale/internal/rest"
	"github.com/mlnoga/multiscale/internal/synth"
	"github.com/mlnoga/multiscale/internal/track"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")

var out     = flag.String("out", "%auto", "save detections with given filename pattern, `%auto` replaces the image suffix with .csv")
var overlay = flag.String("overlay", "", "save detection overlays with given filename pattern, e.g. `overlay%04d.png`")
var log     = flag.String("log", "", "save log output to `file` in addition to stdout")

var layers   = flag.Int64("layers", 3, "number of DoG layers per octave")
var octaves  = flag.Int64("octaves", 3, "maximal number of octaves, clamped to what the image fits")
var preblur  = flag.Float64("preblur", 1.6, "pre-blur radius in pixels")
var maxRatio = flag.Float64("maxRatio", octave.DefaultMaxRatio, "Hessian ratio threshold for edge rejection")
var upscale  = flag.Int64("upscale", 1, "1=add a 2x upscaled octave for small blobs, 0=do not")

var linkFactor = flag.Float64("linkFactor", 1.0, "trajectory linking tolerance as a multiple of the radii sum")

var port   = flag.Int64("port", 8080, "port to serve the REST API on")
var chroot = flag.String("chroot", "", "restrict the server to the given directory (requires root)")
var setuid = flag.Int64("setuid", -1, "drop server privileges to the given user id, -1=no op")

func main() {
	start := time.Now()
	flag.Usage = func() {
		fmt.Printf(`Multiscale Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (detect|link|serve|demo|legal|version) (img0.tif ... imgn.tif)

Commands:
  detect  Detect blobs in the input images, writing CSV center lists
  link    Link per-frame CSV center lists into trajectories
  serve   Serve the detection REST API
  demo    Detect blobs in a synthetic test frame
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *log != "" {
		if err := logf.AlsoToFile(*log); err != nil {
			logf.Fatalf("Unable to open logfile '%s'\n", *log)
		}
	}
	defer logf.Sync()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logf.Fatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logf.Fatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	cfg := multiscale.Config{
		NLayers:       int(*layers),
		NOctaves:      int(*octaves),
		PreblurRadius: *preblur,
		MaxRatio:      *maxRatio,
		Upscale:       *upscale != 0,
	}

	switch args[0] {
	case "detect":
		if err := cmdDetect(cfg, args[1:]); err != nil {
			logf.Fatalf("Error: %s\n", err.Error())
		}
	case "link":
		if err := cmdLink(args[1:]); err != nil {
			logf.Fatalf("Error: %s\n", err.Error())
		}
	case "serve":
		if err := rest.MakeSandbox(*chroot, int(*setuid)); err != nil {
			logf.Fatalf("Error entering sandbox: %s\n", err.Error())
		}
		if err := rest.Serve(int(*port)); err != nil {
			logf.Fatalf("Error serving: %s\n", err.Error())
		}
	case "demo":
		if err := cmdDemo(cfg); err != nil {
			logf.Fatalf("Error: %s\n", err.Error())
		}
	case "legal":
		logf.Print(legal)
	case "version":
		logf.Printf("Version %s\n", version)
	case "help", "?":
		flag.Usage()
	default:
		logf.Printf("Unknown command '%s'\n", args[0])
		flag.Usage()
		os.Exit(-1)
	}
	logf.Printf("Done after %v\n", time.Since(start))
}

// Detects blobs in all given images in parallel, one CSV per frame
func cmdDetect(cfg multiscale.Config, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("no input images given")
	}
	kernels := octave.NewKernelCache()
	ctx := batch.NewContext(os.Stdout, 0)
	var mutex sync.Mutex
	return ctx.Run(len(files), func(i int) error {
		file := files[i]
		data, width, err := imgio.LoadFrame(file)
		if err != nil {
			return err
		}
		finder := multiscale.NewFinder(width, len(data)/width, cfg, kernels)
		centers, err := finder.Detect(data, width)
		if err != nil {
			return err
		}
		mutex.Lock()
		logf.Printf("%s: %d centers in %d octaves\n", file, len(centers), finder.Octaves())
		mutex.Unlock()
		outName := strings.TrimSuffix(file, filepath.Ext(file)) + ".csv"
		if *out != "%auto" && *out != "" {
			outName = fmt.Sprintf(*out, i)
		}
		f, err := os.Create(outName)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := imgio.WriteCentersCSV(f, centers); err != nil {
			return err
		}
		if *overlay != "" {
			return imgio.SaveImage(fmt.Sprintf(*overlay, i), render.Overlay(data, width, centers))
		}
		return nil
	})
}

// Links per-frame CSV center lists into trajectories and prints them
func cmdLink(files []string) error {
	if len(files) < 2 {
		return fmt.Errorf("need at least two center lists to link")
	}
	frames := make([][]octave.Center, 0, len(files))
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		centers, err := imgio.ReadCentersCSV(f)
		f.Close()
		if err != nil {
			return err
		}
		frames = append(frames, centers)
	}
	ti, err := track.LinkSequence(frames, *linkFactor)
	if err != nil {
		return err
	}
	logf.Printf("%d trajectories across %d frames\n", ti.Len(), ti.Frames())
	logf.Println("Traj,Start,Finish,Positions")
	for i := 0; i < ti.Len(); i++ {
		tr := ti.Traj(i)
		logf.Printf("%d,%d,%d,%v\n", i, tr.Start, tr.Finish(), tr.Pos)
	}
	return nil
}

// Round-trips a synthetic frame through the detector
func cmdDemo(cfg multiscale.Config) error {
	width, height := 128, 128
	data := synth.Flat(width, height, 0.1)
	synth.AddBlob2D(data, width, 32.3, 40.8, 2.5, 2.5, 0.8)
	synth.AddBlob2D(data, width, 90.0, 70.0, 5.0, 5.0, 0.6)
	synth.AddNoise(data, 0.01)
	finder := multiscale.NewFinder(width, height, cfg, nil)
	centers, err := finder.Detect(data, width)
	if err != nil {
		return err
	}
	logf.Printf("%d centers in %d octaves\n", len(centers), finder.Octaves())
	return imgio.WriteCentersCSV(os.Stdout, centers)
}
