// Package pointcloud is a fields-flagged point container used by perception
// consumers of the locomotion stack. A cloud carries only the channels its
// field set names; accessing an absent channel is an error, and copies
// between clouds resolve to the fields both sides carry.
package pointcloud

import (
	"errors"
	"fmt"
	"math"
)

// ErrFields marks a field-set violation.
var ErrFields = errors.New("pointcloud: field mismatch")

// Fields names the channels a cloud stores. DescriptorDim > 0 enables a
// per-point feature descriptor of that dimension.
type Fields struct {
	XYZs          bool
	Normals       bool
	RGBs          bool
	DescriptorDim int
}

// HasDescriptor reports whether the field set includes descriptors.
func (f Fields) HasDescriptor() bool { return f.DescriptorDim > 0 }

// Contains reports whether f carries every channel named by sub.
func (f Fields) Contains(sub Fields) bool {
	if sub.XYZs && !f.XYZs {
		return false
	}
	if sub.Normals && !f.Normals {
		return false
	}
	if sub.RGBs && !f.RGBs {
		return false
	}
	if sub.HasDescriptor() && sub.DescriptorDim != f.DescriptorDim {
		return false
	}
	return true
}

// Intersect returns the channels carried by both field sets.
func (f Fields) Intersect(other Fields) Fields {
	out := Fields{
		XYZs:    f.XYZs && other.XYZs,
		Normals: f.Normals && other.Normals,
		RGBs:    f.RGBs && other.RGBs,
	}
	if f.DescriptorDim == other.DescriptorDim {
		out.DescriptorDim = f.DescriptorDim
	}
	return out
}

// Empty reports whether the field set names no channels.
func (f Fields) Empty() bool {
	return !f.XYZs && !f.Normals && !f.RGBs && !f.HasDescriptor()
}

func (f Fields) String() string {
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if f.XYZs {
		add("xyzs")
	}
	if f.Normals {
		add("normals")
	}
	if f.RGBs {
		add("rgbs")
	}
	if f.HasDescriptor() {
		add(fmt.Sprintf("descriptor(%d)", f.DescriptorDim))
	}
	if s == "" {
		return "none"
	}
	return s
}

// Cloud is a column-oriented point container. Numeric channels default to
// NaN so uninitialized points are detectable; colors default to zero.
type Cloud struct {
	fields Fields

	xyzs        [][3]float64
	normals     [][3]float64
	rgbs        [][3]uint8
	descriptors [][]float64
}

// New builds a cloud of the given size. Fields must name at least one
// channel.
func New(size int, fields Fields) (*Cloud, error) {
	if fields.Empty() {
		return nil, fmt.Errorf("%w: no fields named", ErrFields)
	}
	if size < 0 {
		return nil, fmt.Errorf("pointcloud: negative size %d", size)
	}
	c := &Cloud{fields: fields}
	c.Resize(size)
	return c, nil
}

// Size returns the number of points.
func (c *Cloud) Size() int {
	switch {
	case c.fields.XYZs:
		return len(c.xyzs)
	case c.fields.Normals:
		return len(c.normals)
	case c.fields.RGBs:
		return len(c.rgbs)
	default:
		return len(c.descriptors)
	}
}

// Fields returns the cloud's field set.
func (c *Cloud) Fields() Fields { return c.fields }

func (c *Cloud) HasXYZs() bool        { return c.fields.XYZs }
func (c *Cloud) HasNormals() bool     { return c.fields.Normals }
func (c *Cloud) HasRGBs() bool        { return c.fields.RGBs }
func (c *Cloud) HasDescriptors() bool { return c.fields.HasDescriptor() }

// HasFields reports whether the cloud carries every requested channel.
func (c *Cloud) HasFields(fields Fields) bool { return c.fields.Contains(fields) }

// RequireFields errors unless the cloud carries every requested channel.
func (c *Cloud) RequireFields(fields Fields) error {
	if !c.HasFields(fields) {
		return fmt.Errorf("%w: cloud has %s, requires %s", ErrFields, c.fields, fields)
	}
	return nil
}

// HasExactFields reports whether the field sets match exactly.
func (c *Cloud) HasExactFields(fields Fields) bool { return c.fields == fields }

// RequireExactFields errors unless the field sets match exactly.
func (c *Cloud) RequireExactFields(fields Fields) error {
	if !c.HasExactFields(fields) {
		return fmt.Errorf("%w: cloud has %s, requires exactly %s", ErrFields, c.fields, fields)
	}
	return nil
}

var nan3 = [3]float64{math.NaN(), math.NaN(), math.NaN()}

// Resize grows or shrinks the cloud in place, preserving existing points.
// New numeric entries start as NaN.
func (c *Cloud) Resize(newSize int) {
	if c.fields.XYZs {
		c.xyzs = resizeVec3(c.xyzs, newSize)
	}
	if c.fields.Normals {
		c.normals = resizeVec3(c.normals, newSize)
	}
	if c.fields.RGBs {
		c.rgbs = resizeRGB(c.rgbs, newSize)
	}
	if c.fields.HasDescriptor() {
		c.descriptors = resizeDescriptors(c.descriptors, newSize, c.fields.DescriptorDim)
	}
}

// Expand appends addSize fresh points.
func (c *Cloud) Expand(addSize int) {
	if addSize <= 0 {
		return
	}
	c.Resize(c.Size() + addSize)
}

func resizeVec3(s [][3]float64, n int) [][3]float64 {
	if n <= len(s) {
		return s[:n]
	}
	for len(s) < n {
		s = append(s, nan3)
	}
	return s
}

func resizeRGB(s [][3]uint8, n int) [][3]uint8 {
	if n <= len(s) {
		return s[:n]
	}
	for len(s) < n {
		s = append(s, [3]uint8{})
	}
	return s
}

func resizeDescriptors(s [][]float64, n, dim int) [][]float64 {
	if n <= len(s) {
		return s[:n]
	}
	for len(s) < n {
		d := make([]float64, dim)
		for i := range d {
			d[i] = math.NaN()
		}
		s = append(s, d)
	}
	return s
}

// XYZs returns the position channel.
func (c *Cloud) XYZs() ([][3]float64, error) {
	if !c.HasXYZs() {
		return nil, fmt.Errorf("%w: no xyzs channel", ErrFields)
	}
	return c.xyzs, nil
}

// NormalsData returns the normal channel.
func (c *Cloud) NormalsData() ([][3]float64, error) {
	if !c.HasNormals() {
		return nil, fmt.Errorf("%w: no normals channel", ErrFields)
	}
	return c.normals, nil
}

// RGBsData returns the color channel.
func (c *Cloud) RGBsData() ([][3]uint8, error) {
	if !c.HasRGBs() {
		return nil, fmt.Errorf("%w: no rgbs channel", ErrFields)
	}
	return c.rgbs, nil
}

// Descriptors returns the descriptor channel.
func (c *Cloud) Descriptors() ([][]float64, error) {
	if !c.HasDescriptors() {
		return nil, fmt.Errorf("%w: no descriptor channel", ErrFields)
	}
	return c.descriptors, nil
}

// SetFrom copies the channels both clouds carry from other, resizing this
// cloud when allowResize is set. With allowResize off the sizes must match.
func (c *Cloud) SetFrom(other *Cloud, allowResize bool) error {
	if other.Size() != c.Size() {
		if !allowResize {
			return fmt.Errorf("pointcloud: SetFrom size %d != %d without resize", other.Size(), c.Size())
		}
		c.Resize(other.Size())
	}
	shared := c.fields.Intersect(other.fields)
	if shared.Empty() {
		return fmt.Errorf("%w: no shared channels between %s and %s", ErrFields, c.fields, other.fields)
	}
	if shared.XYZs {
		copy(c.xyzs, other.xyzs)
	}
	if shared.Normals {
		copy(c.normals, other.normals)
	}
	if shared.RGBs {
		copy(c.rgbs, other.rgbs)
	}
	if shared.HasDescriptor() {
		for i := range other.descriptors {
			copy(c.descriptors[i], other.descriptors[i])
		}
	}
	return nil
}

// Copy returns a cloud with the requested channels populated from c. The
// request must be a subset of c's fields.
func (c *Cloud) Copy(fields Fields) (*Cloud, error) {
	if err := c.RequireFields(fields); err != nil {
		return nil, err
	}
	out, err := New(c.Size(), fields)
	if err != nil {
		return nil, err
	}
	if err := out.SetFrom(c, false); err != nil {
		return nil, err
	}
	return out, nil
}
