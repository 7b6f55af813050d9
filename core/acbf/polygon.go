package acbf

import (
	"slices"

	"github.com/beevik/etree"

	"github.com/FocuswithJustin/acbf/core/errors"
)

// polygon implements the point operations shared by frames, jumps and text
// areas. The points attribute always holds at least one point.
type polygon struct {
	book *Book
	el   *etree.Element
	kind string
}

// Points returns the polygon vertices.
func (p polygon) Points() []Point {
	pts, err := ParsePoints(attrOf(p.el, "points"))
	if err != nil {
		return nil
	}
	return pts
}

// SetPoints replaces the polygon vertices.
func (p polygon) SetPoints(pts []Point) error {
	if err := p.book.checkWritable("set " + p.kind + " points"); err != nil {
		return err
	}
	return p.write(pts)
}

// InsertPoint inserts a vertex at index i; i == len appends.
func (p polygon) InsertPoint(i int, pt Point) error {
	if err := p.book.checkWritable("insert " + p.kind + " point"); err != nil {
		return err
	}
	pts := p.Points()
	j, err := normIndex("points", i, len(pts), true)
	if err != nil {
		return err
	}
	return p.write(slices.Insert(pts, j, pt))
}

// SetPoint replaces the vertex at index i.
func (p polygon) SetPoint(i int, pt Point) error {
	if err := p.book.checkWritable("set " + p.kind + " point"); err != nil {
		return err
	}
	pts := p.Points()
	j, err := normIndex("points", i, len(pts), false)
	if err != nil {
		return err
	}
	pts[j] = pt
	return p.write(pts)
}

// RemovePoint removes the vertex at index i. The last vertex cannot be
// removed.
func (p polygon) RemovePoint(i int) error {
	if err := p.book.checkWritable("remove " + p.kind + " point"); err != nil {
		return err
	}
	pts := p.Points()
	j, err := normIndex("points", i, len(pts), false)
	if err != nil {
		return err
	}
	if len(pts) == 1 {
		return errors.NewValue("points", "cannot remove the last point of a "+p.kind)
	}
	return p.write(slices.Delete(pts, j, j+1))
}

func (p polygon) write(pts []Point) error {
	if len(pts) == 0 {
		return errors.NewValue("points", "at least one point is required")
	}
	p.el.CreateAttr("points", FormatPoints(pts))
	return nil
}

// Frame is a panel of a page, shown in order when reading frame by frame.
type Frame struct {
	polygon
}

// BgColor returns the frame background color.
func (f *Frame) BgColor() string { return attrOf(f.el, "bgcolor") }

// SetBgColor sets the frame background color; "" removes it.
func (f *Frame) SetBgColor(color string) error {
	if err := f.book.checkWritable("set frame bgcolor"); err != nil {
		return err
	}
	setAttr(f.el, "bgcolor", color)
	return nil
}

// Jump is a clickable area that navigates to another page.
type Jump struct {
	polygon
}

// Page returns the target page: 0 for the cover, 1 for the first page.
func (j *Jump) Page() int {
	n, _ := parseInt(attrOf(j.el, "page"))
	return n
}

// SetPage sets the target page.
func (j *Jump) SetPage(page int) error {
	if err := j.book.checkWritable("set jump page"); err != nil {
		return err
	}
	if page < 0 {
		return errors.NewValuef("jump page", "%d must not be negative", page)
	}
	j.el.CreateAttr("page", formatInt(page))
	return nil
}
