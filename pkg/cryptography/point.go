package cryptography

import (
	"crypto/elliptic"
	"fmt"
	"math/big"
	"strings"
)

// Point is an affine point on secp256r1, the serialization the miner clients
// use for their public keys ("x,y" with decimal coordinates).
type Point struct {
	X *big.Int
	Y *big.Int
}

// ParsePoint parses an "x,y" encoded point and validates it lies on the curve.
func ParsePoint(s string) (Point, error) {
	coords := strings.SplitN(strings.TrimSpace(s), ",", 2)
	if len(coords) != 2 {
		return Point{}, fmt.Errorf("invalid point encoding %q: want \"x,y\"", s)
	}

	x, ok := new(big.Int).SetString(strings.TrimSpace(coords[0]), 10)
	if !ok {
		return Point{}, fmt.Errorf("invalid point x coordinate %q", coords[0])
	}
	y, ok := new(big.Int).SetString(strings.TrimSpace(coords[1]), 10)
	if !ok {
		return Point{}, fmt.Errorf("invalid point y coordinate %q", coords[1])
	}

	if !elliptic.P256().IsOnCurve(x, y) {
		return Point{}, fmt.Errorf("point is not on the secp256r1 curve")
	}

	return Point{X: x, Y: y}, nil
}

func (p Point) String() string {
	return p.X.String() + "," + p.Y.String()
}
