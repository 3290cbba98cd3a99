package media

import (
	"image"

	"golang.org/x/image/draw"
)

// Profile describes how an upload is normalized before it is stored.
type Profile struct {
	Name string

	// Width scales the image to exactly this width, keeping the aspect
	// ratio. Narrower images are enlarged.
	Width int

	// Box shrinks the image to fit a Box x Box square, keeping the aspect
	// ratio. Smaller images are left alone.
	Box int

	// Unrestricted skips the extension allow-list.
	Unrestricted bool
}

var (
	PostImage    = Profile{Name: "post", Width: 1000}
	ProfileImage = Profile{Name: "profile", Box: 125}
)

// Size returns the target dimensions for a w x h source.
func (p Profile) Size(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}

	switch {
	case p.Width > 0:
		return p.Width, max(1, h*p.Width/w)
	case p.Box > 0:
		if w <= p.Box && h <= p.Box {
			return w, h
		}
		if w >= h {
			return p.Box, max(1, h*p.Box/w)
		}
		return max(1, w*p.Box/h), p.Box
	}
	return w, h
}

// Normalize resamples src to the profile's size. src is returned as is when
// no resize is needed.
func (p Profile) Normalize(src image.Image) image.Image {
	b := src.Bounds()
	w, h := p.Size(b.Dx(), b.Dy())
	if w == b.Dx() && h == b.Dy() {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
