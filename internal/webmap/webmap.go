// Package webmap writes a self-contained interactive Leaflet map of the
// plants of one country.
package webmap

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/mohammed-shakir/repp-atlas/internal/capacity"
	"github.com/mohammed-shakir/repp-atlas/internal/charts"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
)

const (
	DefaultZoom  = 7
	markerRadius = 6
)

type marker struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Color  string  `json:"color"`
	Popup  string  `json:"popup"`
	Source string  `json:"source"`
}

type page struct {
	Title   string
	View    template.JS
	Radius  template.JS
	Markers template.JS
	Legend  []legendItem
}

type legendItem struct {
	Label string
	Color string
}

// Write renders the map of country's plants from t. It fails with
// capacity.ErrNoData when the country has none.
func Write(w io.Writer, t plants.Table, country string) error {
	sel := t.InCountries([]string{country})
	lon, lat, ok := sel.Center()
	if !ok {
		return fmt.Errorf("%w for %s", capacity.ErrNoData, country)
	}

	ms := make([]marker, 0, len(sel))
	for _, p := range sel {
		ms = append(ms, marker{
			Lat:    p.Lat,
			Lon:    p.Lon,
			Color:  charts.SourceHex(p.Source),
			Popup:  popup(p),
			Source: string(p.Source),
		})
	}
	raw, err := json.Marshal(ms)
	if err != nil {
		return err
	}

	legend := make([]legendItem, 0, len(plants.Sources))
	for _, s := range plants.Sources {
		legend = append(legend, legendItem{Label: string(s), Color: charts.SourceHex(s)})
	}

	return tmpl.Execute(w, page{
		Title:   "Renewable Energy Plants - " + country,
		View:    template.JS(fmt.Sprintf("[%.5f, %.5f], %d", lat, lon, DefaultZoom)),
		Radius:  template.JS(fmt.Sprint(markerRadius)),
		Markers: template.JS(raw),
		Legend:  legend,
	})
}

// popup is escaped here because Leaflet inserts it as HTML.
func popup(p plants.Plant) string {
	name := p.Name
	if name == "" {
		name = "Unnamed"
	}
	return fmt.Sprintf("<b>%s</b><br>Type: %s<br>Capacity: %.1f MW<br>Status: %s",
		template.HTMLEscapeString(name),
		template.HTMLEscapeString(string(p.Source)),
		p.CapacityMW,
		template.HTMLEscapeString(p.ElecStatus.Label()))
}

var tmpl = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.banner { position: fixed; top: 10px; left: 50px; z-index: 1000; background: white;
  padding: 6px 12px; border: 2px solid grey; border-radius: 4px; font: 16px sans-serif; }
.legend { background: white; padding: 6px 8px; font: 12px sans-serif; line-height: 18px; }
.legend i { width: 12px; height: 12px; float: left; margin-right: 6px; border-radius: 6px; }
</style>
</head>
<body>
<div class="banner"><b>{{.Title}}</b></div>
<div id="map"></div>
<script>
var map = L.map('map').setView({{.View}});
L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
var markers = {{.Markers}};
markers.forEach(function (m) {
  L.circleMarker([m.lat, m.lon], {
    radius: {{.Radius}}, color: m.color, fillColor: m.color, fillOpacity: 0.7, weight: 1
  }).bindPopup(m.popup, {maxWidth: 300}).bindTooltip(m.source).addTo(map);
});
var legend = L.control({position: 'bottomright'});
legend.onAdd = function () {
  var div = L.DomUtil.create('div', 'legend');
  {{range .Legend}}div.innerHTML += '<i style="background:{{.Color}}"></i>{{.Label}}<br>';
  {{end}}return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))
