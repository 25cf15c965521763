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


package rest

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/multiscale/internal/imgio"
	"github.com/mlnoga/multiscale/internal/multiscale"
	"github.com/mlnoga/multiscale/internal/octave"
	"github.com/mlnoga/multiscale/internal/synth"
	"github.com/mlnoga/multiscale/internal/track"
)

// Starts the REST API on the given port and blocks
func Serve(port int) error {
	return NewRouter().Run(fmt.Sprintf(":%d", port))
}

// Builds the API routes; separated from Serve for testing
func NewRouter() *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/selftest", getSelftest)
			v1.POST("/detect", postDetect)
			v1.POST("/link", postLink)
		}
	}
	return r
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

type postDetectArgs struct {
	FilePatterns []string          `json:"filePatterns"`
	Config       multiscale.Config `json:"config"`
}

// Runs blob detection on the server-side files matching the given patterns
func postDetect(c *gin.Context) {
	var args postDetectArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Config.NLayers == 0 {
		args.Config = multiscale.DefaultConfig()
	}
	files, err := globAll(args.FilePatterns)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kernels := octave.NewKernelCache()
	results := make(map[string][]octave.Center, len(files))
	for _, file := range files {
		data, width, err := imgio.LoadFrame(file)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "file": file})
			return
		}
		finder := multiscale.NewFinder(width, len(data)/width, args.Config, kernels)
		centers, err := finder.Detect(data, width)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "file": file})
			return
		}
		results[file] = centers
	}
	c.JSON(http.StatusOK, results)
}

type postLinkArgs struct {
	FilePatterns []string `json:"filePatterns"` // CSV center lists, one per frame, in order
	Factor       float64  `json:"factor"`       // link tolerance as a multiple of the radii sum
}

type trajReply struct {
	Start int   `json:"start"`
	Pos   []int `json:"pos"`
}

// Links per-frame center lists into trajectories
func postLink(c *gin.Context) {
	var args postLinkArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Factor <= 0 {
		args.Factor = 1
	}
	files, err := globAll(args.FilePatterns)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	frames := make([][]octave.Center, 0, len(files))
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "file": file})
			return
		}
		centers, err := imgio.ReadCentersCSV(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "file": file})
			return
		}
		frames = append(frames, centers)
	}
	ti, err := track.LinkSequence(frames, args.Factor)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	trajs := make([]trajReply, ti.Len())
	for i := range trajs {
		tr := ti.Traj(i)
		trajs[i] = trajReply{Start: tr.Start, Pos: tr.Pos}
	}
	c.JSON(http.StatusOK, gin.H{"frames": len(frames), "trajectories": trajs})
}

// Detects a synthetic blob as an end-to-end health check
func getSelftest(c *gin.Context) {
	data := synth.Blob2D(64, 64, 32, 32, 2.5, 1)
	finder := multiscale.NewFinder(64, 64, multiscale.DefaultConfig(), nil)
	centers, err := finder.Detect(data, 64)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"centers": centers})
}

func globAll(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", p, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %v", patterns)
	}
	return files, nil
}
