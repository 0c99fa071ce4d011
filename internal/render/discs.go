package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/reversi-arena/pkg/reversidto"
)

//go:embed assets/discs/*.svg
var discFiles embed.FS

type discKey struct {
	side reversidto.Side
	size int
}

var (
	discCache   = map[discKey]image.Image{}
	discCacheMu sync.RWMutex
)

// discImage rasterises the disc of side at size x size pixels. Results are cached per size.
func discImage(side reversidto.Side, size int) (image.Image, error) {
	key := discKey{side: side, size: size}
	discCacheMu.RLock()
	img, ok := discCache[key]
	discCacheMu.RUnlock()
	if ok {
		return img, nil
	}

	name := fmt.Sprintf("assets/discs/%s.svg", side)
	data, err := discFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read disc asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse disc svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	discCacheMu.Lock()
	discCache[key] = rgba
	discCacheMu.Unlock()
	return rgba, nil
}
