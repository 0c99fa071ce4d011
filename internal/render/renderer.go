package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/reversi-arena/internal/msgcat"
	"github.com/park285/reversi-arena/pkg/reversidto"
)

// BoardRenderer draws a snapshot as a PNG image.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, snap reversidto.Snapshot) ([]byte, error)
}

const (
	squareSize  = 56
	boardPixels = squareSize * 8
	margin      = 24
	hudHeight   = 44
	gapToBoard  = 12
	panelRadius = 10
	discInset   = 4
	hintRadius  = 5
)

var (
	feltColor      = color.RGBA{R: 0, G: 122, B: 74, A: 255}
	gridColor      = color.RGBA{R: 0, G: 70, B: 42, A: 255}
	backdropColor  = color.RGBA{R: 24, G: 27, B: 38, A: 255}
	hudPanelColor  = color.NRGBA{R: 40, G: 44, B: 62, A: 250}
	hudTextColor   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hintColor      = color.NRGBA{R: 0, G: 0, B: 0, A: 70}
	lastMoveColor  = color.NRGBA{R: 255, G: 214, B: 90, A: 110}
	coordTextColor = color.NRGBA{R: 150, G: 160, B: 190, A: 255}
)

type pngRenderer struct {
	cat *msgcat.Catalog
}

// NewPNGRenderer returns a renderer whose HUD text comes from cat. A nil catalog uses the
// embedded defaults.
func NewPNGRenderer(cat *msgcat.Catalog) BoardRenderer {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &pngRenderer{cat: cat}
}

func (r *pngRenderer) RenderPNG(ctx context.Context, snap reversidto.Snapshot) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width := boardPixels + margin*2
	height := boardPixels + margin*2 + hudHeight + gapToBoard
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backdropColor), image.Point{}, imagedraw.Src)

	hud := image.Rect(margin, margin, margin+boardPixels, margin+hudHeight)
	origin := image.Point{X: margin, Y: hud.Max.Y + gapToBoard}

	r.drawHUD(img, hud, snap)
	drawBoard(img, origin)
	drawLastMove(img, origin, snap.LastMove)
	if err := drawDiscs(img, origin, snap.Board); err != nil {
		return nil, err
	}
	if !snap.Terminal {
		drawHints(img, origin, snap.MovesFor(snap.Turn))
	}
	drawCoordinates(img, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *pngRenderer) hudText(snap reversidto.Snapshot) string {
	data := map[string]any{
		"Player": string(snap.Turn),
		"Black":  snap.Scores.Black,
		"White":  snap.Scores.White,
	}
	if snap.Terminal {
		outcome := snap.Winner + " wins"
		if snap.Winner == "draw" {
			outcome = "draw"
		}
		data["Outcome"] = outcome
		return r.cat.Text("board.hud_over", data, fmt.Sprintf("game over: %s", outcome))
	}
	return r.cat.Text("board.hud_turn", data, fmt.Sprintf("%s to move", snap.Turn))
}

func (r *pngRenderer) drawHUD(img *image.RGBA, rect image.Rectangle, snap reversidto.Snapshot) {
	drawRoundedPanel(img, rect, panelRadius, hudPanelColor)
	face := hudFace()
	text := truncateWithEllipsis(face, r.hudText(snap), rect.Dx()-2*panelRadius)
	drawCenteredString(&font.Drawer{Dst: img, Face: face}, rect, text, hudTextColor)
}

func hudFace() font.Face { return basicfont.Face7x13 }

func drawBoard(img *image.RGBA, origin image.Point) {
	board := image.Rect(origin.X, origin.Y, origin.X+boardPixels, origin.Y+boardPixels)
	imagedraw.Draw(img, board, image.NewUniform(feltColor), image.Point{}, imagedraw.Src)
	line := image.NewUniform(gridColor)
	for i := 0; i <= 8; i++ {
		off := i * squareSize
		imagedraw.Draw(img, image.Rect(board.Min.X+off-1, board.Min.Y, board.Min.X+off+1, board.Max.Y), line, image.Point{}, imagedraw.Src)
		imagedraw.Draw(img, image.Rect(board.Min.X, board.Min.Y+off-1, board.Max.X, board.Min.Y+off+1), line, image.Point{}, imagedraw.Src)
	}
}

func cellRect(origin image.Point, x, y int) image.Rectangle {
	tl := image.Point{X: origin.X + x*squareSize, Y: origin.Y + y*squareSize}
	return image.Rectangle{Min: tl, Max: tl.Add(image.Pt(squareSize, squareSize))}
}

func drawDiscs(img *image.RGBA, origin image.Point, board [8][8]int) error {
	size := squareSize - 2*discInset
	for y := range board {
		for x, v := range board[y] {
			var side reversidto.Side
			switch v {
			case reversidto.CellBlack:
				side = reversidto.SideBlack
			case reversidto.CellWhite:
				side = reversidto.SideWhite
			default:
				continue
			}
			disc, err := discImage(side, size)
			if err != nil {
				return err
			}
			rect := cellRect(origin, x, y).Inset(discInset)
			imagedraw.Draw(img, rect, disc, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawHints(img *image.RGBA, origin image.Point, moves []reversidto.Coord) {
	for _, m := range moves {
		rect := cellRect(origin, m.X, m.Y)
		center := image.Pt(rect.Min.X+squareSize/2, rect.Min.Y+squareSize/2)
		drawDisc(img, center, hintRadius, hintColor)
	}
}

func drawLastMove(img *image.RGBA, origin image.Point, last *reversidto.Move) {
	if last == nil {
		return
	}
	rect := cellRect(origin, last.X, last.Y).Inset(1)
	imagedraw.Draw(img, rect, image.NewUniform(lastMoveColor), image.Point{}, imagedraw.Over)
}

// drawCoordinates labels columns a-h under the board and rows 1-8 on the left.
func drawCoordinates(img *image.RGBA, origin image.Point) {
	face := hudFace()
	d := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(coordTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		center := origin.X + i*squareSize + squareSize/2
		drawCenteredText(d, string(rune('a'+i)), center, origin.Y+boardPixels+ascent+2)
		mid := origin.Y + i*squareSize + squareSize/2
		drawCenteredText(d, string(rune('1'+i)), origin.X-margin/2, mid+ascent/2)
	}
}

func drawCenteredText(d *font.Drawer, text string, centerX, baseline int) {
	w := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-w/2, baseline)
	d.DrawString(text)
}

func drawCenteredString(d *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m := d.Face.Metrics()
	w := d.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-w)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Src = image.NewUniform(clr)
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	text = strings.TrimSpace(text)
	d := font.Drawer{Face: face}
	if text == "" || maxWidth <= 0 || d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if c := string(runes) + ellipsis; d.MeasureString(c).Round() <= maxWidth {
			return c
		}
	}
	return ellipsis
}
