package render

import (
	"image"
	"image/color"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeu5/langlearn-rl/learnenv"
	"github.com/zeu5/langlearn-rl/util"
)

var (
	background = rgb(1, 1, 1)
	edgeColor  = rgb(0.1, 0.1, 0.1)

	pathColor      = rgb(0.5, 0.5, 0.5)
	highlightColor = rgb(0.8, 0.8, 0.2)

	actionColors = map[learnenv.Action]color.RGBA{
		learnenv.Vocabulary:   rgb(0.7, 0.7, 1),
		learnenv.Conversation: rgb(1, 0.7, 0.7),
		learnenv.Grammar:      rgb(0.7, 1, 0.7),
		learnenv.Culture:      rgb(1, 0.7, 1),
	}

	levelColors = []color.RGBA{
		rgb(0.2, 0.2, 0.8),
		rgb(0.2, 0.8, 0.2),
		rgb(0.8, 0.8, 0.2),
		rgb(0.8, 0.4, 0.2),
		rgb(0.8, 0.2, 0.2),
	}

	barBackground = rgb(0.85, 0.85, 0.85)
	barColors     = []color.RGBA{
		rgb(0.2, 0.6, 1),
		rgb(1, 0.6, 0.2),
		rgb(0.6, 1, 0.2),
	}
)

const (
	agentRadius   = 0.4
	agentSegments = 24

	panelX      = -4.0
	panelY      = -3.0
	barOffset   = 3.0
	barWidth    = 4.5
	barHeight   = 0.3
	barSpacing  = 0.6
	rewardShift = 50.0
)

func rgb(r, g, b float32) color.RGBA {
	return color.RGBA{
		R: uint8(util.Clamp(r, 0, 1) * 255),
		G: uint8(util.Clamp(g, 0, 1) * 255),
		B: uint8(util.Clamp(b, 0, 1) * 255),
		A: 255,
	}
}

func shade(c color.RGBA, f float32) color.RGBA {
	return color.RGBA{
		R: uint8(float32(c.R) * f),
		G: uint8(float32(c.G) * f),
		B: uint8(float32(c.B) * f),
		A: c.A,
	}
}

// Canvas rasterizes scenes into RGBA frames with a fixed perspective camera.
type Canvas struct {
	width, height int

	eye        mgl32.Vec3
	view       mgl32.Mat4
	projection mgl32.Mat4
}

var _ Renderer = &Canvas{}

func NewCanvas(width, height int) *Canvas {
	eye := mgl32.Vec3{0, -8, 4}
	return &Canvas{
		width:      width,
		height:     height,
		eye:        eye,
		view:       mgl32.LookAtV(eye, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}),
		projection: mgl32.Perspective(mgl32.DegToRad(45), float32(width)/float32(height), 0.1, 50),
	}
}

func (c *Canvas) Close() error {
	return nil
}

// Project maps a world position to pixel coordinates, origin at the top left.
func (c *Canvas) Project(p mgl32.Vec3) (float32, float32) {
	win := mgl32.Project(p, c.view, c.projection, 0, 0, c.width, c.height)
	return win[0], float32(c.height) - win[1]
}

type cube struct {
	center mgl32.Vec3
	size   float32
	color  color.RGBA
}

func (c *Canvas) Render(scene learnenv.Scene) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	fillRect(img, img.Bounds(), background)

	c.drawPanel(img, scene)

	cubes := make([]cube, 0, learnenv.MaxLevel+1+learnenv.NumActions)
	for level := 0; level <= learnenv.MaxLevel; level++ {
		cb := cube{
			center: mgl32.Vec3{float32(-4 + 2*level), 0, 0},
			size:   0.8,
			color:  pathColor,
		}
		if level == scene.Level {
			cb.size = 1.0
			cb.color = highlightColor
		}
		cubes = append(cubes, cb)
	}
	for _, a := range learnenv.Actions() {
		cb := cube{
			center: a.Target(),
			size:   0.8,
			color:  actionColors[a],
		}
		if a == scene.LastAction {
			cb.size = 1.0
		}
		cubes = append(cubes, cb)
	}
	sort.SliceStable(cubes, func(i, j int) bool {
		return c.distance(cubes[i].center) > c.distance(cubes[j].center)
	})
	for _, cb := range cubes {
		c.drawCube(img, cb)
	}

	c.drawAgent(img, scene)
	return img, nil
}

func (c *Canvas) distance(p mgl32.Vec3) float32 {
	return c.eye.Sub(p).Len()
}

func (c *Canvas) drawCube(img *image.RGBA, cb cube) {
	h := cb.size / 2
	corners := [8]mgl32.Vec3{}
	for i := 0; i < 8; i++ {
		offset := mgl32.Vec3{-h, -h, -h}
		if i&1 != 0 {
			offset[0] = h
		}
		if i&2 != 0 {
			offset[1] = h
		}
		if i&4 != 0 {
			offset[2] = h
		}
		corners[i] = cb.center.Add(offset)
	}
	faces := []struct {
		idx   [4]int
		light float32
	}{
		{[4]int{0, 1, 3, 2}, 0.5}, // bottom
		{[4]int{0, 1, 5, 4}, 0.8}, // front
		{[4]int{2, 3, 7, 6}, 0.8},
		{[4]int{0, 2, 6, 4}, 0.65},
		{[4]int{1, 3, 7, 5}, 0.65},
		{[4]int{4, 5, 7, 6}, 1.0}, // top
	}
	sort.SliceStable(faces, func(i, j int) bool {
		return c.distance(faceCenter(corners, faces[i].idx)) > c.distance(faceCenter(corners, faces[j].idx))
	})
	for _, f := range faces {
		pts := make([]point, 0, 4)
		for _, i := range f.idx {
			x, y := c.Project(corners[i])
			pts = append(pts, point{x, y})
		}
		fillPolygon(img, pts, shade(cb.color, f.light))
		for i := range pts {
			next := pts[(i+1)%len(pts)]
			drawLine(img, pts[i], next, edgeColor)
		}
	}
}

func faceCenter(corners [8]mgl32.Vec3, idx [4]int) mgl32.Vec3 {
	sum := mgl32.Vec3{}
	for _, i := range idx {
		sum = sum.Add(corners[i])
	}
	return sum.Mul(0.25)
}

func (c *Canvas) drawAgent(img *image.RGBA, scene learnenv.Scene) {
	col := levelColors[util.Clamp(scene.Level, 0, len(levelColors)-1)]
	pts := make([]point, 0, agentSegments)
	for i := 0; i < agentSegments; i++ {
		theta := 2 * math32.Pi * float32(i) / agentSegments
		p := scene.Position.Add(mgl32.Vec3{agentRadius * math32.Cos(theta), agentRadius * math32.Sin(theta), 0})
		x, y := c.Project(p)
		pts = append(pts, point{x, y})
	}
	fillPolygon(img, pts, col)
}

// drawPanel draws the performance, engagement and reward bars flat on the floor.
func (c *Canvas) drawPanel(img *image.RGBA, scene learnenv.Scene) {
	values := []float64{
		scene.Performance,
		scene.Engagement,
		util.Clamp(scene.CumulativeReward+rewardShift, 0, 100),
	}
	for i, v := range values {
		y := float32(panelY) - float32(i)*barSpacing
		x0 := float32(panelX + barOffset)
		c.drawQuad(img, x0, y, barWidth, barBackground)
		c.drawQuad(img, x0, y, barWidth*float32(v)/100, barColors[i])
	}
}

func (c *Canvas) drawQuad(img *image.RGBA, x, y, width float32, col color.RGBA) {
	if width <= 0 {
		return
	}
	corners := []mgl32.Vec3{
		{x, y, 0},
		{x + width, y, 0},
		{x + width, y + barHeight, 0},
		{x, y + barHeight, 0},
	}
	pts := make([]point, 0, len(corners))
	for _, p := range corners {
		px, py := c.Project(p)
		pts = append(pts, point{px, py})
	}
	fillPolygon(img, pts, col)
}

type point struct {
	x, y float32
}

func fillRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// fillPolygon scanline fills a convex polygon.
func fillPolygon(img *image.RGBA, pts []point, col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	b := img.Bounds()
	minY, maxY := pts[0].y, pts[0].y
	for _, p := range pts[1:] {
		minY = math32.Min(minY, p.y)
		maxY = math32.Max(maxY, p.y)
	}
	y0 := util.Clamp(int(math32.Floor(minY)), b.Min.Y, b.Max.Y-1)
	y1 := util.Clamp(int(math32.Ceil(maxY)), b.Min.Y, b.Max.Y-1)
	for y := y0; y <= y1; y++ {
		sy := float32(y) + 0.5
		left, right := float32(math32.MaxFloat32), float32(-math32.MaxFloat32)
		for i := range pts {
			a, c := pts[i], pts[(i+1)%len(pts)]
			if (a.y <= sy && c.y > sy) || (c.y <= sy && a.y > sy) {
				x := a.x + (sy-a.y)*(c.x-a.x)/(c.y-a.y)
				left = math32.Min(left, x)
				right = math32.Max(right, x)
			}
		}
		if left > right {
			continue
		}
		x0 := util.Clamp(roundInt(left), b.Min.X, b.Max.X)
		x1 := util.Clamp(roundInt(right), b.Min.X, b.Max.X)
		for x := x0; x < x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// drawLine is Bresenham, clipped by SetRGBA.
func drawLine(img *image.RGBA, from, to point, col color.RGBA) {
	x0, y0 := roundInt(from.x), roundInt(from.y)
	x1, y1 := roundInt(to.x), roundInt(to.y)
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		img.SetRGBA(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func roundInt(v float32) int {
	return int(math32.Floor(v + 0.5))
}
