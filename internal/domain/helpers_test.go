package domain_test

import (
	"time"

	"github.com/Angellovem/biocredits-calc/internal/domain"
	"github.com/paulmach/orb"
)

// squareRing returns a closed counterclockwise square ring.
func squareRing(minX, minY, size float64) orb.Ring {
	return orb.Ring{
		{minX, minY},
		{minX + size, minY},
		{minX + size, minY + size},
		{minX, minY + size},
		{minX, minY},
	}
}

// workingPlot builds a square plot already in the working reference.
func workingPlot(id string, minX, minY, size float64) domain.Plot {
	return domain.Plot{
		ID:       id,
		Boundary: orb.MultiPolygon{{squareRing(minX, minY, size)}},
		Area:     size * size,
	}
}

func workingObservation(id string, x, y, radius float64, day time.Time) domain.Observation {
	return domain.Observation{
		ID:     id,
		Point:  orb.Point{x, y},
		Day:    domain.DateOf(day),
		Radius: radius,
	}
}

var testDay = time.Date(2024, time.January, 1, 14, 30, 0, 0, time.UTC)
