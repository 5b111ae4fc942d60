package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// byteRange is an inclusive [start, end] slice of a file.
type byteRange struct {
	start, end, length int64
}

// parseRange parses a single-range `Range: bytes=start-end` header
// against a file of the given size. Grounded on mantonx/viewra's
// progressive_handler.go serveRangeRequest shape, simplified to the
// single-range case HLS/media players issue in practice.
func parseRange(header string, size int64) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}
	if !strings.HasPrefix(header, "bytes=") {
		return nil, fmt.Errorf("unsupported range unit")
	}
	spec := strings.TrimPrefix(header, "bytes=")
	if strings.Contains(spec, ",") {
		return nil, fmt.Errorf("multiple ranges not supported")
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed range")
	}

	var start, end int64
	var err error

	switch {
	case parts[0] == "" && parts[1] != "":
		// suffix range: last N bytes
		n, perr := strconv.ParseInt(parts[1], 10, 64)
		if perr != nil {
			return nil, perr
		}
		if n > size {
			n = size
		}
		start = size - n
		end = size - 1
	case parts[0] != "":
		start, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, err
		}
		if parts[1] == "" {
			end = size - 1
		} else {
			end, err = strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("malformed range")
	}

	if start < 0 || end >= size || start > end {
		return nil, fmt.Errorf("range out of bounds")
	}

	return &byteRange{start: start, end: end, length: end - start + 1}, nil
}

// serveFileRangeAware serves path with Range support when the client
// sends a Range header, and the full file otherwise (spec.md §4.6
// "Direct video"/"Direct audio").
func serveFileRangeAware(c *gin.Context, path, contentType string, cacheControl string) {
	file, err := os.Open(path)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	if contentType != "" {
		c.Header("Content-Type", contentType)
	}
	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}
	c.Header("Accept-Ranges", "bytes")

	rng, err := parseRange(c.GetHeader("Range"), info.Size())
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", info.Size()))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if rng == nil {
		c.Header("Content-Length", strconv.FormatInt(info.Size(), 10))
		c.Status(http.StatusOK)
		io.Copy(c.Writer, file)
		return
	}

	if _, err := file.Seek(rng.start, io.SeekStart); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, info.Size()))
	c.Header("Content-Length", strconv.FormatInt(rng.length, 10))
	c.Status(http.StatusPartialContent)
	io.CopyN(c.Writer, file, rng.length)
}
