// Package blurhash computes perceptual image hashes in-process instead
// of shelling out to an external CLI. It borrows the raw-pixel
// manipulation idiom of internal/media/thumbnail.go's image/draw
// folder-grid compositing, applied to a new concern: a compact
// DCT-based perceptual hash instead of a composited thumbnail grid.
package blurhash

import (
	"fmt"
	"image"
	"math"
	"strings"
)

const base83Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz#$%*+,-.:;=?@[]^_{|}~"

// MaxComponents is the maximum AC component count per axis that the
// blurhash format's 1-character size-flag byte can represent.
const MaxComponents = 9

// Encode computes the blurhash of img using componentsX×componentsY
// DCT components, per the standard blurhash algorithm (componentsX and
// componentsY must each be in [1,9]).
func Encode(img image.Image, componentsX, componentsY int) (string, error) {
	if componentsX < 1 || componentsX > MaxComponents || componentsY < 1 || componentsY > MaxComponents {
		return "", fmt.Errorf("blurhash: components out of range [1,%d]: %dx%d", MaxComponents, componentsX, componentsY)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return "", fmt.Errorf("blurhash: empty image")
	}

	factors := make([][3]float64, componentsX*componentsY)
	for j := 0; j < componentsY; j++ {
		for i := 0; i < componentsX; i++ {
			normalization := 1.0
			if i != 0 || j != 0 {
				normalization = 2.0
			}
			factors[j*componentsX+i] = multiplyBasisFunction(img, i, j, normalization)
		}
	}

	dc := factors[0]
	ac := factors[1:]

	var out strings.Builder

	sizeFlag := (componentsX - 1) + (componentsY-1)*9
	out.WriteString(encode83(int64(sizeFlag), 1))

	var maximumValue float64
	if len(ac) > 0 {
		var actualMax float64
		for _, f := range ac {
			actualMax = math.Max(actualMax, math.Max(math.Abs(f[0]), math.Max(math.Abs(f[1]), math.Abs(f[2]))))
		}
		quantized := int(math.Max(0, math.Min(82, math.Floor(actualMax*166-0.5))))
		maximumValue = float64(quantized+1) / 166
		out.WriteString(encode83(int64(quantized), 1))
	} else {
		maximumValue = 1
		out.WriteString(encode83(0, 1))
	}

	out.WriteString(encode83(encodeDC(dc), 4))

	for _, f := range ac {
		out.WriteString(encode83(encodeAC(f, maximumValue), 2))
	}

	return out.String(), nil
}

// multiplyBasisFunction integrates the image against the (i,j) DCT
// basis function, returning linear-light RGB averages scaled by
// normalization.
func multiplyBasisFunction(img image.Image, i, j int, normalization float64) [3]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var r, g, b float64
	for y := 0; y < height; y++ {
		basisY := math.Cos(math.Pi * float64(j) * float64(y) / float64(height))
		for x := 0; x < width; x++ {
			basisX := math.Cos(math.Pi * float64(i) * float64(x) / float64(width))
			basis := basisX * basisY

			pr, pg, pb, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r += basis * sRGBToLinear(float64(pr>>8)/255)
			g += basis * sRGBToLinear(float64(pg>>8)/255)
			b += basis * sRGBToLinear(float64(pb>>8)/255)
		}
	}

	scale := normalization / float64(width*height)
	return [3]float64{r * scale, g * scale, b * scale}
}

func sRGBToLinear(v float64) float64 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func linearToSRGB(v float64) int {
	v = math.Max(0, math.Min(1, v))
	var out float64
	if v <= 0.0031308 {
		out = v * 12.92
	} else {
		out = 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return int(math.Round(out * 255))
}

func encodeDC(rgb [3]float64) int64 {
	r := linearToSRGB(rgb[0])
	g := linearToSRGB(rgb[1])
	b := linearToSRGB(rgb[2])
	return int64(r)<<16 | int64(g)<<8 | int64(b)
}

func encodeAC(rgb [3]float64, maximumValue float64) int64 {
	quantR := signPow(rgb[0]/maximumValue, 0.5)
	quantG := signPow(rgb[1]/maximumValue, 0.5)
	quantB := signPow(rgb[2]/maximumValue, 0.5)

	clamp := func(v float64) int64 {
		q := int64(math.Floor(v*9 + 9.5))
		if q < 0 {
			return 0
		}
		if q > 18 {
			return 18
		}
		return q
	}

	return clamp(quantR)*19*19 + clamp(quantG)*19 + clamp(quantB)
}

func signPow(v, exp float64) float64 {
	sign := 1.0
	if v < 0 {
		sign = -1.0
	}
	return sign * math.Pow(math.Abs(v), exp)
}

func encode83(value int64, length int) string {
	buf := make([]byte, length)
	for i := 1; i <= length; i++ {
		digit := (value / pow83(length-i)) % 83
		buf[i-1] = base83Alphabet[digit]
	}
	return string(buf)
}

func pow83(exp int) int64 {
	result := int64(1)
	for i := 0; i < exp; i++ {
		result *= 83
	}
	return result
}
