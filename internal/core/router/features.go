package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/repp-atlas/internal/core/model"
	"github.com/mohammed-shakir/repp-atlas/internal/core/ogc"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
)

// ParseFeatureQuery reads a plants passthrough query: bbox or polygon,
// optional CQL filters, country list and feature limit. The layer is fixed
// by the server.
func ParseFeatureQuery(r *http.Request, layer string) (model.FeatureQuery, string, error) {
	var warn string

	rawBBox := strings.TrimSpace(r.URL.Query().Get("bbox"))
	rawPoly := strings.TrimSpace(r.URL.Query().Get("polygon"))
	filters := strings.TrimSpace(r.URL.Query().Get("filters"))

	// drop bbox if polygon is given (polygon wins)
	if rawBBox != "" && rawPoly != "" {
		warn = "both bbox and polygon supplied; preferring polygon"
		rawBBox = ""
	}

	var bbox *model.BBox
	if rawBBox != "" {
		bb, err := parseBBOX(rawBBox)
		if err != nil {
			return model.FeatureQuery{}, warn, fmt.Errorf("invalid bbox: %w", err)
		}
		bbox = &bb
	}

	var poly *model.Polygon
	if rawPoly != "" {
		p, err := parsePolygon(rawPoly)
		if err != nil {
			return model.FeatureQuery{}, warn, fmt.Errorf("invalid polygon: %w", err)
		}
		poly = &p
	}

	if filters != "" && !isSafeCQL(filters) {
		return model.FeatureQuery{}, warn, errors.New("invalid or disallowed cql_filter")
	}

	if in := ogc.InFilter(plants.ColCountry, splitList(r.URL.Query()["country"])); in != "" {
		if filters == "" {
			filters = in
		} else {
			filters = "(" + filters + ") AND " + in
		}
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("max")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return model.FeatureQuery{}, warn, fmt.Errorf("invalid max %q", raw)
		}
		limit = n
	}

	return model.FeatureQuery{
		Layer:       layer,
		BBox:        bbox,
		Area:        poly,
		Filters:     filters,
		MaxFeatures: limit,
	}, warn, nil
}

func parseBBOX(bboxParam string) (model.BBox, error) {
	parts := strings.Split(bboxParam, ",")
	if len(parts) != 5 {
		return model.BBox{}, errors.New("expected 5 comma-separated values: x1,y1,x2,y2,EPSG:4326")
	}
	xMin, err := parseFloat(parts[0])
	if err != nil {
		return model.BBox{}, fmt.Errorf("x1: %w", err)
	}
	yMin, err := parseFloat(parts[1])
	if err != nil {
		return model.BBox{}, fmt.Errorf("y1: %w", err)
	}
	xMax, err := parseFloat(parts[2])
	if err != nil {
		return model.BBox{}, fmt.Errorf("x2: %w", err)
	}
	yMax, err := parseFloat(parts[3])
	if err != nil {
		return model.BBox{}, fmt.Errorf("y2: %w", err)
	}

	srid := strings.ToUpper(strings.TrimSpace(parts[4]))
	if srid != "EPSG:4326" {
		return model.BBox{}, fmt.Errorf("only EPSG:4326 is supported at this stage (got %q)", srid)
	}

	if !(xMin >= -180 && xMin <= 180 && xMax >= -180 && xMax <= 180) {
		return model.BBox{}, errors.New("longitude must be in [-180,180]")
	}
	if !(yMin >= -90 && yMin <= 90 && yMax >= -90 && yMax <= 90) {
		return model.BBox{}, errors.New("latitude must be in [-90,90]")
	}
	if xMax <= xMin || yMax <= yMin {
		return model.BBox{}, errors.New("coordinates must satisfy x2>x1 and y2>y1")
	}
	return model.BBox{X1: xMin, Y1: yMin, X2: xMax, Y2: yMax, SRID: srid}, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}

var safeCQLPattern = regexp.MustCompile(`^[\w\s\=\>\<\!\(\)\.\,\'\"\-]+$`)

func isSafeCQL(s string) bool {
	if len(s) > 500 {
		return false
	}
	return safeCQLPattern.MatchString(s)
}

func parsePolygon(raw string) (model.Polygon, error) {
	var tmp struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return model.Polygon{}, fmt.Errorf("parse json: %w", err)
	}
	t := strings.TrimSpace(tmp.Type)
	switch t {
	case "Polygon", "MultiPolygon":
		return model.Polygon{GeoJSON: raw}, nil
	default:
		return model.Polygon{}, fmt.Errorf(`unsupported GeoJSON "type": %q (must be Polygon or MultiPolygon)`, t)
	}
}
