package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	kml "github.com/twpayne/go-kml"

	"github.com/nandanugg/geofence-navigator/module/core/domain"
	"github.com/nandanugg/geofence-navigator/module/core/geo"
)

const kmlContentType = "application/vnd.google-earth.kml+xml"

// ExportKML renders every geofence as a polygon placemark.
func (h *GeofenceHandler) ExportKML(c *gin.Context) {
	geofences, err := h.geofenceSvc.GetAllGeofencesSnapshot(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to fetch geofences")
		return
	}

	placemarks := make([]kml.Element, 0, len(geofences)+1)
	placemarks = append(placemarks, kml.Name("Geofences"))
	for _, g := range geofences {
		ring, err := geo.CirclePolygon(g.Center, g.RadiusMeters)
		if err != nil {
			continue
		}
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(g.Name),
			kml.Description(fmt.Sprintf("radius %.0f m, selected %t, visited %t", g.RadiusMeters, g.IsSelected, g.IsVisited)),
			kml.Polygon(
				kml.OuterBoundaryIs(
					kml.LinearRing(
						kml.Coordinates(toKMLCoordinates(ring)...),
					),
				),
			),
		))
	}

	writeKML(c, "geofences.kml", kml.KML(kml.Document(placemarks...)))
}

// ExportKML renders the ordered stops and the current leg.
func (h *RouteHandler) ExportKML(c *gin.Context) {
	state := h.routeSvc.Snapshot()

	elements := []kml.Element{kml.Name("Route")}
	for i, stop := range state.OrderedStops {
		elements = append(elements, kml.Placemark(
			kml.Name(fmt.Sprintf("%d. %s", i+1, stop.Name)),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: stop.Center.Lng, Lat: stop.Center.Lat})),
		))
	}
	if state.Leg != nil && len(state.Leg.Polyline) > 1 {
		elements = append(elements, kml.Placemark(
			kml.Name("Current leg"),
			kml.LineString(kml.Coordinates(toKMLCoordinates(state.Leg.Polyline)...)),
		))
	}

	writeKML(c, "route.kml", kml.KML(kml.Document(elements...)))
}

func writeKML(c *gin.Context, filename string, doc *kml.CompoundElement) {
	var buf bytes.Buffer
	if err := doc.WriteIndent(&buf, "", "  "); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render kml"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, kmlContentType, buf.Bytes())
}

func toKMLCoordinates(points []domain.Point) []kml.Coordinate {
	coords := make([]kml.Coordinate, len(points))
	for i, p := range points {
		coords[i] = kml.Coordinate{Lon: p.Lng, Lat: p.Lat}
	}
	return coords
}
