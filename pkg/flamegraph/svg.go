package flamegraph

import (
	"fmt"
	"html"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// SVGOptions configures the flame graph SVG output.
type SVGOptions struct {
	Title       string
	Width       int
	Height      int
	ColorScheme string // "hot", "cold", "mem"
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Title:       "Flame Graph",
		Width:       1200,
		ColorScheme: "hot",
	}
}

// node is one frame of the merged call tree. value includes all descendants.
type node struct {
	name     string
	value    int64
	children map[string]*node
}

func newNode(name string) *node {
	return &node{
		name:     name,
		children: make(map[string]*node),
	}
}

// buildTree folds stacks into a call tree rooted at "all".
func buildTree(stacks Stacks) *node {
	root := newNode("all")
	for stack, weight := range stacks {
		if weight <= 0 || stack == "" {
			continue
		}
		n := root
		for _, name := range strings.Split(stack, ";") {
			child, ok := n.children[name]
			if !ok {
				child = newNode(name)
				n.children[name] = child
			}
			child.value += weight
			n = child
		}
		root.value += weight
	}
	return root
}

// GenerateSVG renders folded stacks (microsecond weights) as an SVG flame
// graph. Frame widths are proportional to inclusive time.
func GenerateSVG(stacks Stacks, svg io.Writer, opts SVGOptions) error {
	if opts.Width == 0 {
		opts.Width = 1200
	}

	root := buildTree(stacks)
	if root.value == 0 {
		return fmt.Errorf("no samples found in folded stacks")
	}

	frameHeight := 16
	fontSize := 12
	maxDepth := treeDepth(root, 0)
	headerHeight := 40
	if opts.Height == 0 {
		opts.Height = (maxDepth+2)*frameHeight + headerHeight + 20
	}

	fmt.Fprintf(svg, `<?xml version="1.0" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg1.1.dtd">
<svg version="1.1" width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<style>
  .func:hover { stroke:black; stroke-width:0.5; cursor:pointer; }
  text { font-family: monospace; font-size: %dpx; }
</style>
<rect x="0" y="0" width="%d" height="%d" fill="white"/>
<text x="%d" y="20" text-anchor="middle" style="font-size:16px; font-weight:bold;">%s</text>
<text x="%d" y="35" text-anchor="middle" style="font-size:12px; fill:#666;">(%s total)</text>
`,
		opts.Width, opts.Height, fontSize,
		opts.Width, opts.Height,
		opts.Width/2, html.EscapeString(opts.Title),
		opts.Width/2, formatMicros(root.value))

	margin := 10
	r := renderer{
		w:           svg,
		baseY:       opts.Height - 20,
		frameHeight: frameHeight,
		total:       root.value,
		scheme:      opts.ColorScheme,
	}
	r.render(root, margin, opts.Width-2*margin, 0)

	_, err := fmt.Fprintln(svg, "</svg>")
	return err
}

type renderer struct {
	w           io.Writer
	baseY       int
	frameHeight int
	total       int64
	scheme      string
}

func (r *renderer) render(n *node, x, width, depth int) {
	if width < 1 || n.value == 0 {
		return
	}

	y := r.baseY - depth*r.frameHeight
	red, green, blue := frameColor(n.name, r.scheme)

	fmt.Fprintf(r.w, `<g class="func">
<rect x="%d" y="%d" width="%d" height="%d" fill="rgb(%d,%d,%d)" rx="1"/>
`, x, y-r.frameHeight, width, r.frameHeight-1, red, green, blue)

	if width > 40 {
		label := n.name
		maxChars := (width - 4) / 7 // approximate monospace char width
		if len(label) > maxChars {
			if maxChars > 3 {
				label = label[:maxChars-2] + ".."
			} else {
				label = ""
			}
		}
		if label != "" {
			fmt.Fprintf(r.w, `<text x="%d" y="%d" fill="black">%s</text>
`, x+2, y-4, html.EscapeString(label))
		}
	}

	fmt.Fprintf(r.w, `<title>%s (%s, %.2f%%)</title>
</g>
`, html.EscapeString(n.name), formatMicros(n.value), float64(n.value)/float64(r.total)*100)

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	childX := x
	for _, name := range names {
		child := n.children[name]
		childWidth := int(float64(width) * float64(child.value) / float64(n.value))
		if childWidth < 1 {
			childWidth = 1
		}
		r.render(child, childX, childWidth, depth+1)
		childX += childWidth
	}
}

// frameColor derives a stable colour from the frame name so a function keeps
// its colour wherever it appears.
func frameColor(name, scheme string) (int, int, int) {
	h := xxh3.HashString(name)
	v1, v2 := int(h%256), int((h>>8)%256)
	switch scheme {
	case "cold":
		return 30 + v1%50, 80 + v2%120, 190 + v1%60
	case "mem":
		return 30 + v2%40, 170 + v1%80, 30 + v2%50
	default: // "hot"
		return 205 + v1%50, 60 + v2%170, 30 + v1%50
	}
}

func treeDepth(n *node, depth int) int {
	deepest := depth
	for _, child := range n.children {
		if d := treeDepth(child, depth+1); d > deepest {
			deepest = d
		}
	}
	return deepest
}

func formatMicros(us int64) string {
	return (time.Duration(us) * time.Microsecond).String()
}
