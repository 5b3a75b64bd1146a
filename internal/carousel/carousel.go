// Package carousel implements cyclic navigation over a project's images.
package carousel

import (
	"errors"
	"slices"
)

// ErrNoImages is returned when a carousel would have nothing to show.
var ErrNoImages = errors.New("carousel: no images")

// Carousel holds the current position in an image list. Navigation wraps, so
// the index is always in [0, Len()).
type Carousel struct {
	images  []string
	current int
	display func(src string)
}

// New returns a carousel at index 0. display, when non-nil, is called with the
// image to show, once now and again on every move before the move returns.
func New(images []string, display func(src string)) (*Carousel, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	c := &Carousel{images: slices.Clone(images), display: display}
	c.show()
	return c, nil
}

// Next advances one image, wrapping to the first.
func (c *Carousel) Next() string {
	c.current = (c.current + 1) % len(c.images)
	return c.show()
}

// Previous steps back one image, wrapping to the last.
func (c *Carousel) Previous() string {
	n := len(c.images)
	c.current = (c.current - 1 + n) % n
	return c.show()
}

// Index is the current position.
func (c *Carousel) Index() int { return c.current }

// Current is the image at the current position.
func (c *Carousel) Current() string { return c.images[c.current] }

// Len is the number of images.
func (c *Carousel) Len() int { return len(c.images) }

func (c *Carousel) show() string {
	src := c.images[c.current]
	if c.display != nil {
		c.display(src)
	}
	return src
}
