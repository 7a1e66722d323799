// Native PNG rendering for learned automata. States are laid out on a ring,
// which keeps the renderer deterministic without a layout engine.

package dfafile

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/learnkit/pkg/dfa"
)

// PNGOptions configures PNG rendering.
type PNGOptions struct {
	Width       int
	Height      int
	Padding     int
	StateRadius int
	FontSize    int
	Title       string
}

// DefaultPNGOptions returns sensible defaults for PNG rendering.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{
		Width:       800,
		Height:      600,
		Padding:     50,
		StateRadius: 26,
		FontSize:    14,
	}
}

// Colors used in rendering
var (
	colorWhite     = color.RGBA{255, 255, 255, 255}
	colorBlack     = color.RGBA{51, 51, 51, 255}    // #333
	colorGray      = color.RGBA{102, 102, 102, 255} // #666
	colorAcceptBdr = color.RGBA{230, 81, 0, 255}    // #e65100
)

// stateFill grades state fills by id so neighbouring states remain
// distinguishable in dense automata.
func stateFill(id, total int) color.RGBA {
	if total < 1 {
		total = 1
	}
	hue := 200.0 + 120.0*float64(id)/float64(total)
	c := colorful.Hsv(math.Mod(hue, 360), 0.12, 1.0)
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 255}
}

type renderContext struct {
	img       *image.RGBA
	scale     float64
	lineWidth float64
	face      font.Face
}

func newRenderContext(img *image.RGBA, scale int, fontSize int) *renderContext {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err) // embedded font
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(fontSize * scale),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		panic(err)
	}
	return &renderContext{
		img:       img,
		scale:     float64(scale),
		lineWidth: float64(scale) * 2,
		face:      face,
	}
}

// RenderPNG renders a DFA to PNG. Uses 4x supersampling for smoother
// output.
func RenderPNG(d *dfa.DFA, w io.Writer, opts PNGOptions) error {
	scale := 4
	large := opts
	large.Width *= scale
	large.Height *= scale
	large.Padding *= scale
	large.StateRadius *= scale

	largeImg := renderInternal(d, large, scale)

	finalImg := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.CatmullRom.Scale(finalImg, finalImg.Bounds(), largeImg, largeImg.Bounds(), draw.Over, nil)

	return png.Encode(w, finalImg)
}

func renderInternal(d *dfa.DFA, opts PNGOptions, scale int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	ctx := newRenderContext(img, scale, opts.FontSize)

	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			img.Set(x, y, colorWhite)
		}
	}

	n := d.NumStates()
	if n == 0 {
		return img
	}

	// Ring layout around the canvas centre; a single state sits centred.
	cx := float64(opts.Width) / 2
	cy := float64(opts.Height) / 2
	radius := math.Min(cx, cy) - float64(opts.Padding+opts.StateRadius)
	pos := make([][2]float64, n)
	for s := 0; s < n; s++ {
		if n == 1 {
			pos[s] = [2]float64{cx, cy}
			continue
		}
		angle := 2*math.Pi*float64(s)/float64(n) - math.Pi/2
		pos[s] = [2]float64{cx + radius*math.Cos(angle), cy + radius*math.Sin(angle)}
	}

	r := float64(opts.StateRadius)

	// Edges first so the state discs cover the line ends.
	type edge struct{ from, to int }
	labels := make(map[edge][]string)
	for s := 0; s < n; s++ {
		for i := 0; i < d.Alphabet().Size(); i++ {
			if to := d.Step(s, i); to >= 0 {
				key := edge{s, to}
				labels[key] = append(labels[key], d.Alphabet().Symbol(i))
			}
		}
	}
	for key, syms := range labels {
		label := syms[0]
		for _, s := range syms[1:] {
			label += ", " + s
		}
		if key.from == key.to {
			ctx.drawSelfLoop(pos[key.from], r, label)
			continue
		}
		ctx.drawArrow(pos[key.from], pos[key.to], r, label)
	}

	// Initial-state marker.
	if init := d.Initial(); init >= 0 {
		p := pos[init]
		from := [2]float64{p[0] - r - 40*ctx.scale, p[1]}
		ctx.drawArrow(from, p, r, "")
	}

	// State discs.
	for s := 0; s < n; s++ {
		p := pos[s]
		ctx.fillCircle(p, r, stateFill(s, n))
		ctx.strokeCircle(p, r, colorBlack)
		if d.IsAccepting(s) {
			ctx.strokeCircle(p, r-3*ctx.scale, colorAcceptBdr)
		}
		ctx.drawTextCentered(p[0], p[1], stateName(s), colorBlack)
	}

	if opts.Title != "" {
		ctx.drawTextCentered(cx, float64(opts.Padding)/2, opts.Title, colorBlack)
	}

	return img
}

func stateName(s int) string {
	return "q" + itoa(s)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (ctx *renderContext) fillCircle(c [2]float64, r float64, col color.RGBA) {
	minX, maxX := int(c[0]-r)-1, int(c[0]+r)+1
	minY, maxY := int(c[1]-r)-1, int(c[1]+r)+1
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx, dy := float64(x)-c[0], float64(y)-c[1]
			if dx*dx+dy*dy <= r*r {
				ctx.img.Set(x, y, col)
			}
		}
	}
}

func (ctx *renderContext) strokeCircle(c [2]float64, r float64, col color.RGBA) {
	half := ctx.lineWidth / 2
	outer, inner := (r+half)*(r+half), (r-half)*(r-half)
	minX, maxX := int(c[0]-r-half)-1, int(c[0]+r+half)+1
	minY, maxY := int(c[1]-r-half)-1, int(c[1]+r+half)+1
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx, dy := float64(x)-c[0], float64(y)-c[1]
			d2 := dx*dx + dy*dy
			if d2 <= outer && d2 >= inner {
				ctx.img.Set(x, y, col)
			}
		}
	}
}

func (ctx *renderContext) drawLine(a, b [2]float64, col color.RGBA) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	steps := int(length) + 1
	half := ctx.lineWidth / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x, y := a[0]+dx*t, a[1]+dy*t
		for oy := -half; oy <= half; oy++ {
			for ox := -half; ox <= half; ox++ {
				ctx.img.Set(int(x+ox), int(y+oy), col)
			}
		}
	}
}

// drawArrow draws a line from a to b, trimmed at the target state's radius,
// with an arrowhead and an optional midpoint label.
func (ctx *renderContext) drawArrow(a, b [2]float64, r float64, label string) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	start := [2]float64{a[0] + ux*r, a[1] + uy*r}
	end := [2]float64{b[0] - ux*r, b[1] - uy*r}

	ctx.drawLine(start, end, colorGray)

	// Arrowhead
	ah := 8 * ctx.scale
	left := [2]float64{end[0] - ux*ah - uy*ah/2, end[1] - uy*ah + ux*ah/2}
	right := [2]float64{end[0] - ux*ah + uy*ah/2, end[1] - uy*ah - ux*ah/2}
	ctx.drawLine(end, left, colorGray)
	ctx.drawLine(end, right, colorGray)

	if label != "" {
		mx, my := (start[0]+end[0])/2, (start[1]+end[1])/2
		// Offset the label off the line along the normal.
		ctx.drawTextCentered(mx-uy*12*ctx.scale, my+ux*12*ctx.scale, label, colorBlack)
	}
}

func (ctx *renderContext) drawSelfLoop(p [2]float64, r float64, label string) {
	c := [2]float64{p[0], p[1] - r*1.8}
	ctx.strokeCircle(c, r*0.8, colorGray)
	if label != "" {
		ctx.drawTextCentered(c[0], c[1]-r*1.1, label, colorBlack)
	}
}

func (ctx *renderContext) drawTextCentered(x, y float64, text string, col color.RGBA) {
	width := font.MeasureString(ctx.face, text)
	metrics := ctx.face.Metrics()
	drawer := &font.Drawer{
		Dst:  ctx.img,
		Src:  image.NewUniform(col),
		Face: ctx.face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x*64) - width/2,
			Y: fixed.Int26_6(y*64) + (metrics.Ascent-metrics.Descent)/2,
		},
	}
	drawer.DrawString(text)
}
