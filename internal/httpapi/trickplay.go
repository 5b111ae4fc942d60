package httpapi

import (
	"image"
	_ "image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
)

const trickplayIntervalSec = 10

var resolutionDirRe = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)x(\d+)$`)

// trickplayResolution describes one sprite-sheet resolution directory
// under a media item's thumbs root (spec.md §4.6 "Trickplay").
type trickplayResolution struct {
	Width       int    `json:"width"`
	Cols        int    `json:"cols"`
	Rows        int    `json:"rows"`
	SpriteCount int    `json:"spriteCount"`
	TileWidth   int    `json:"tileWidth"`
	TileHeight  int    `json:"tileHeight"`
	IntervalSec int    `json:"intervalSec"`
	dirName     string
}

// listTrickplayResolutions enumerates resolution directories, counts
// sprite files in each, and inspects the first sprite of each to
// derive per-tile dimensions. A resolution whose sprite can't be
// decoded falls back to a 16:9 tile aspect.
func listTrickplayResolutions(thumbsRoot string) ([]trickplayResolution, error) {
	entries, err := os.ReadDir(thumbsRoot)
	if err != nil {
		return nil, err
	}

	var out []trickplayResolution
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m := resolutionDirRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		width, _ := strconv.Atoi(m[1])
		cols, _ := strconv.Atoi(m[2])
		rows, _ := strconv.Atoi(m[3])

		dir := filepath.Join(thumbsRoot, entry.Name())
		sprites, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		count := 0
		var firstSprite string
		for _, s := range sprites {
			if s.IsDir() || filepath.Ext(s.Name()) != ".jpg" {
				continue
			}
			count++
			if firstSprite == "" {
				firstSprite = filepath.Join(dir, s.Name())
			}
		}

		tileW, tileH := fallbackTileDims(width, cols)
		if firstSprite != "" {
			if w, h, ok := tileDimsFromSprite(firstSprite, cols, rows); ok {
				tileW, tileH = w, h
			}
		}

		out = append(out, trickplayResolution{
			Width:       width,
			Cols:        cols,
			Rows:        rows,
			SpriteCount: count,
			TileWidth:   tileW,
			TileHeight:  tileH,
			IntervalSec: trickplayIntervalSec,
			dirName:     entry.Name(),
		})
	}
	return out, nil
}

func fallbackTileDims(width, cols int) (int, int) {
	if cols <= 0 {
		cols = 1
	}
	tileWidth := width / cols
	tileHeight := tileWidth * 9 / 16
	return tileWidth, tileHeight
}

func tileDimsFromSprite(path string, cols, rows int) (int, int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cols <= 0 || rows <= 0 {
		return 0, 0, false
	}
	return cfg.Width / cols, cfg.Height / rows, true
}

// GetTrickplayMeta serves GET /trickplay/{id}.
func (h *Handler) GetTrickplayMeta(c *gin.Context) {
	video, err := h.catalogue.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video == nil || video.ThumbsPath == "" {
		c.Status(http.StatusNotFound)
		return
	}

	resolutions, err := listTrickplayResolutions(video.ThumbsPath)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolutions": resolutions})
}

// GetTrickplaySprite serves GET /trickplay/{id}/{width}/{index}.
func (h *Handler) GetTrickplaySprite(c *gin.Context) {
	width := c.Param("width")
	index := c.Param("index")
	if _, err := strconv.Atoi(index); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	video, err := h.catalogue.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video == nil || video.ThumbsPath == "" {
		c.Status(http.StatusNotFound)
		return
	}

	resolutions, err := listTrickplayResolutions(video.ThumbsPath)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	var dir string
	for _, r := range resolutions {
		if strconv.Itoa(r.Width) == width {
			dir = r.dirName
			break
		}
	}
	if dir == "" {
		c.Status(http.StatusNotFound)
		return
	}

	path := filepath.Join(video.ThumbsPath, dir, index+".jpg")
	if _, err := os.Stat(path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}
