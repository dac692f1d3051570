package ogc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/repp-atlas/internal/core/model"
)

func OWSEndpoint(geoServerBase string) string {
	return strings.TrimRight(geoServerBase, "/") + "/ows"
}

func BuildGetFeatureParams(q model.FeatureQuery) url.Values {
	return BuildGetFeatureParamsFormat(q, "application/json")
}

func BuildGetFeatureParamsFormat(q model.FeatureQuery, outputFormat string) url.Values {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeNames", q.Layer)
	if q.MaxFeatures > 0 {
		params.Set("count", strconv.Itoa(q.MaxFeatures))
	}

	cql := q.Filters
	if q.Area != nil {
		// an unparsable area degrades to the attribute filter alone
		if wkt, err := GeoJSONToWKT(q.Area.GeoJSON); err == nil {
			area := fmt.Sprintf("INTERSECTS(geom, %s)", wkt)
			if cql != "" {
				cql = fmt.Sprintf("(%s) AND (%s)", cql, area)
			} else {
				cql = area
			}
		}
	} else if q.BBox != nil {
		params.Set("bbox", q.BBox.String())
	}
	if cql != "" {
		params.Set("cql_filter", cql)
	}

	if strings.TrimSpace(outputFormat) == "" {
		outputFormat = "application/json"
	}
	params.Set("outputFormat", outputFormat)
	return params
}

// InFilter builds a CQL membership test, e.g. country IN ('Kenya','Uganda').
// An empty value list yields an empty filter.
func InFilter(property string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("%s IN (%s)", property, strings.Join(quoted, ","))
}
