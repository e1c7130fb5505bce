package core

import (
	"github.com/zeu5/langlearn-rl/util"
)

// Color is an abstraction of a raw state. States with the same color are
// indistinguishable to a tabular policy.
type Color interface {
	Hash() string
	Copy() Color
}

// A painter that returns a color for the raw state
type Painter func(interface{}) Color

// A painter that returns key value for the raw state
// Should be used with ComposedPainter
type KVPainter func(interface{}) (string, interface{})

// ComposedPainter is a painter that is composed of multiple KVPainters
type ComposedPainter struct {
	SegPainters []KVPainter
}

// ComposedColor is a color that is composed of multiple colors
type ComposedColor struct {
	s map[string]interface{}
}

func (s *ComposedColor) Hash() string {
	return util.JsonHash(s.s)
}

func (s *ComposedColor) Copy() Color {
	newMap := make(map[string]interface{})
	for k, v := range s.s {
		newMap[k] = v
	}
	return &ComposedColor{s: newMap}
}

// Get returns the value painted under key
func (s *ComposedColor) Get(key string) (interface{}, bool) {
	v, ok := s.s[key]
	return v, ok
}

// NewComposedPainter returns a new ComposedPainter with the given KVPainters
func NewComposedPainter(sp ...KVPainter) *ComposedPainter {
	return &ComposedPainter{
		SegPainters: sp,
	}
}

// Painter returns a painter function that returns a ComposedColor
func (c *ComposedPainter) Painter() Painter {
	return func(n interface{}) Color {
		s := make(map[string]interface{})
		for _, sp := range c.SegPainters {
			k, v := sp(n)
			s[k] = v
		}
		return &ComposedColor{s: s}
	}
}
