// Package renderer draws the keepsake card saved after a celebration.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/linuxmatters/blowout/internal/config"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

const (
	minFontSize = 10.0
	maxFontSize = 150.0
)

var (
	waxColor   = color.RGBA{R: 255, G: 182, B: 193, A: 255}
	wickColor  = color.RGBA{R: 60, G: 40, B: 30, A: 255}
	smokeColor = color.RGBA{R: 150, G: 150, B: 160, A: 255}
)

// Keepsake is the content of the card
type Keepsake struct {
	To      string
	From    string
	Message string
	Accent  string // Optional hex colour for the greeting
}

func (k Keepsake) greeting() string {
	if k.To == "" {
		return "Happy Birthday!"
	}
	return fmt.Sprintf("Happy Birthday, %s!", k.To)
}

// GenerateKeepsake renders the card and writes it to outputPath as PNG
func GenerateKeepsake(outputPath string, k Keepsake) error {
	img, err := RenderKeepsake(k)
	if err != nil {
		return err
	}

	if err := saveKeepsake(img, outputPath); err != nil {
		return fmt.Errorf("failed to save keepsake: %w", err)
	}
	return nil
}

// RenderKeepsake draws the card: a tilted greeting across the top, the
// blown-out candle in the middle and the celebration message below it.
func RenderKeepsake(k Keepsake) (*image.RGBA, error) {
	greetingColor := textColor()
	if k.Accent != "" {
		r, g, b, err := config.ParseHexColor(k.Accent)
		if err != nil {
			return nil, err
		}
		greetingColor = color.RGBA{R: r, G: g, B: b, A: 255}
	}

	boldFont, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	italicFont, err := truetype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse italic font: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, config.KeepsakeWidth, config.KeepsakeHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor()), image.Point{}, draw.Src)

	maxWidth := config.KeepsakeWidth - 2*config.KeepsakeMargin

	// Greeting
	greeting := []string{k.greeting()}
	size := findOptimalFontSize(boldFont, greeting, maxWidth, config.KeepsakeHeight/4)
	face := truetype.NewFace(boldFont, &truetype.Options{Size: size, DPI: 72})
	drawTiltedText(img, face, greeting, config.KeepsakeMargin, greetingColor)
	face.Close()

	drawCandle(img)

	// Message
	message := k.Message
	if message == "" {
		message = config.DefaultMessage
	}
	line1, line2 := splitLines(message)
	lines := []string{line1, line2}
	top := config.KeepsakeHeight * 62 / 100
	size = findOptimalFontSize(italicFont, lines, maxWidth, config.KeepsakeHeight*22/100)
	face = truetype.NewFace(italicFont, &truetype.Options{Size: size, DPI: 72})
	drawCenteredLines(img, face, lines, top, textColor())
	face.Close()

	// Signature
	if k.From != "" {
		face = truetype.NewFace(italicFont, &truetype.Options{Size: 28, DPI: 72})
		sig := "with love, " + k.From
		width, _ := measureText(face, sig)
		d := &font.Drawer{Dst: img, Src: image.NewUniform(greetingColor), Face: face}
		d.Dot = freetype.Pt(config.KeepsakeWidth-config.KeepsakeMargin-width, config.KeepsakeHeight-config.KeepsakeMargin)
		d.DrawString(sig)
		face.Close()
	}

	return img, nil
}

func textColor() color.RGBA {
	return color.RGBA{R: config.TextColorR, G: config.TextColorG, B: config.TextColorB, A: 255}
}

func backgroundColor() color.RGBA {
	return color.RGBA{R: config.BackgroundColorR, G: config.BackgroundColorG, B: config.BackgroundColorB, A: 255}
}

// splitLines splits text into 2 roughly equal lines
func splitLines(text string) (string, string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", ""
	}
	if len(words) == 1 {
		return words[0], ""
	}

	mid := len(words) / 2
	return strings.Join(words[:mid], " "), strings.Join(words[mid:], " ")
}

// findOptimalFontSize finds the largest font size at which every line fits
// maxWidth and the block, with 50% line spacing, fits maxHeight
func findOptimalFontSize(parsedFont *truetype.Font, lines []string, maxWidth, maxHeight int) float64 {
	for size := maxFontSize; size > minFontSize; size -= 2.0 {
		face := truetype.NewFace(parsedFont, &truetype.Options{
			Size: size,
			DPI:  72,
		})

		fits := true
		height := 0
		shown := 0
		for _, line := range lines {
			if line == "" {
				continue
			}
			width, bounds := measureText(face, line)
			if width > maxWidth {
				fits = false
				break
			}
			height += (bounds.Max.Y - bounds.Min.Y).Ceil()
			shown++
		}
		face.Close()

		if !fits {
			continue
		}
		if shown > 1 {
			height += (shown - 1) * int(size*0.5)
		}
		if height <= maxHeight {
			return size
		}
	}

	return minFontSize
}

// measureText returns the width and actual bounds of rendered text
// (Min.Y is negative for ascent, Max.Y is positive for descent)
func measureText(face font.Face, text string) (int, fixed.Rectangle26_6) {
	d := &font.Drawer{Face: face}
	bounds, _ := d.BoundString(text)
	width := (bounds.Max.X - bounds.Min.X).Ceil()
	return width, bounds
}

// lineSpacing is half the face height
func lineSpacing(face font.Face) int {
	return int(float64(face.Metrics().Height) / 64.0 * 0.5)
}

// drawCenteredLines draws lines centred horizontally with the visual top of
// the first line at top. Empty lines are skipped.
func drawCenteredLines(img *image.RGBA, face font.Face, lines []string, top int, c color.Color) {
	spacing := lineSpacing(face)
	y := top
	for _, line := range lines {
		if line == "" {
			continue
		}
		_, bounds := measureText(face, line)
		baseline := y - bounds.Min.Y.Ceil()
		drawCenteredLine(img, face, line, img.Bounds().Dx(), baseline, c)
		y += (bounds.Max.Y - bounds.Min.Y).Ceil() + spacing
	}
}

// drawTiltedText draws lines rotated KeepsakeTiltDegrees clockwise. The
// highest point of the rotated block sits at top.
func drawTiltedText(img *image.RGBA, face font.Face, lines []string, top int, c color.Color) {
	maxWidth, totalHeight, firstWidth := 0, 0, 0
	spacing := lineSpacing(face)
	for i, line := range lines {
		width, bounds := measureText(face, line)
		if i == 0 {
			firstWidth = width
		}
		maxWidth = max(maxWidth, width)
		totalHeight += (bounds.Max.Y - bounds.Min.Y).Ceil()
	}
	totalHeight += spacing * max(len(lines)-1, 0)

	// Oversized scratch image so rotation does not clip
	tempSize := int(float64(maxWidth+totalHeight) * 1.5)
	tempImg := image.NewRGBA(image.Rect(0, 0, tempSize, tempSize))

	blockTop := tempSize/2 - totalHeight/2
	drawCenteredLines(tempImg, face, lines, blockTop, c)

	angle := -config.KeepsakeTiltDegrees * math.Pi / 180.0
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	cx := float64(tempSize) / 2.0
	cy := float64(tempSize) / 2.0

	// Translate to origin, rotate, translate back
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}

	rotatedImg := image.NewRGBA(tempImg.Bounds())
	draw.BiLinear.Transform(rotatedImg, m, tempImg, tempImg.Bounds(), draw.Over, nil)

	// After a clockwise tilt the top-right corner of the first line is the
	// highest point
	topRightX := float64(firstWidth) / 2.0
	topRightY := float64(blockTop) - cy
	highestPointY := sin*topRightX + cos*topRightY + cy

	destX := (img.Bounds().Dx() - tempSize) / 2
	destY := int(float64(top) - highestPointY)
	destRect := image.Rect(destX, destY, destX+tempSize, destY+tempSize)
	draw.Draw(img, destRect, rotatedImg, image.Point{}, draw.Over)
}

// drawCenteredLine draws one line of text centred on an image of imgWidth
func drawCenteredLine(img *image.RGBA, face font.Face, text string, imgWidth, baselineY int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
	}

	bounds, _ := d.BoundString(text)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()

	d.Dot = freetype.Pt((imgWidth-textWidth)/2, baselineY)
	d.DrawString(text)
}

// drawCandle draws the extinguished candle with a curl of smoke
func drawCandle(img *image.RGBA) {
	w, h := config.KeepsakeWidth, config.KeepsakeHeight
	cx := w / 2

	wax := image.Rect(cx-22, h*36/100, cx+22, h*58/100)
	draw.Draw(img, wax, image.NewUniform(waxColor), image.Point{}, draw.Src)

	wick := image.Rect(cx-2, h*32/100, cx+2, h*36/100)
	draw.Draw(img, wick, image.NewUniform(wickColor), image.Point{}, draw.Src)

	// Smoke: small puffs drifting up and to the right
	for i := range 4 {
		r := 3 + i
		px := cx + int(8*math.Sin(float64(i)*1.3)) + i*3
		py := h*32/100 - 10 - i*14
		puff := image.Rect(px-r, py-r, px+r, py+r)
		draw.Draw(img, puff, image.NewUniform(smokeColor), image.Point{}, draw.Src)
	}
}

// saveKeepsake saves the card to a PNG file
func saveKeepsake(img *image.RGBA, outputPath string) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	return png.Encode(outFile, img)
}
