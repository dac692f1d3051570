package ogc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ctessum/geom"
)

// GeoJSONToWKT converts a Polygon or MultiPolygon geometry to WKT with SRID
// 4326, the literal form GeoServer accepts inside CQL spatial predicates.
func GeoJSONToWKT(geojson string) (string, error) {
	g, err := decodeArea(geojson)
	if err != nil {
		return "", err
	}
	switch t := g.(type) {
	case geom.Polygon:
		body, err := polygonBody(t)
		if err != nil {
			return "", err
		}
		return "SRID=4326;POLYGON" + body, nil
	case geom.MultiPolygon:
		if len(t) == 0 {
			return "", errors.New("empty multipolygon")
		}
		parts := make([]string, 0, len(t))
		for _, p := range t {
			body, err := polygonBody(p)
			if err != nil {
				return "", err
			}
			parts = append(parts, body)
		}
		return fmt.Sprintf("SRID=4326;MULTIPOLYGON(%s)", strings.Join(parts, ", ")), nil
	}
	return "", fmt.Errorf("unsupported geometry %T", g)
}

func decodeArea(geojson string) (geom.Geom, error) {
	var v struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(geojson), &v); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	switch strings.TrimSpace(v.Type) {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(v.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("parse polygon coords: %w", err)
		}
		return toPolygon(rings)
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(v.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("parse multipolygon coords: %w", err)
		}
		mp := make(geom.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			p, err := toPolygon(rings)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", v.Type)
	}
}

func toPolygon(rings [][][]float64) (geom.Polygon, error) {
	if len(rings) == 0 {
		return nil, errors.New("empty polygon")
	}
	poly := make(geom.Polygon, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < 4 {
			return nil, errors.New("polygon ring has <4 points")
		}
		pts := make([]geom.Point, 0, len(ring))
		for _, xy := range ring {
			if len(xy) != 2 {
				return nil, errors.New("coordinate must be [x,y]")
			}
			pts = append(pts, geom.Point{X: xy[0], Y: xy[1]})
		}
		poly = append(poly, pts)
	}
	return poly, nil
}

func polygonBody(p geom.Polygon) (string, error) {
	if len(p) == 0 {
		return "", errors.New("empty polygon")
	}
	rings := make([]string, 0, len(p))
	for _, ring := range p {
		pts := make([]string, len(ring))
		for i, pt := range ring {
			pts[i] = fmt.Sprintf("%.8f %.8f", pt.X, pt.Y)
		}
		rings = append(rings, "("+strings.Join(pts, ", ")+")")
	}
	return "(" + strings.Join(rings, ", ") + ")", nil
}
