package models

import "strings"

// CaliforniaCounties are the 58 superior court venues a probate case can be
// filed in.
var CaliforniaCounties = []string{
	"Alameda", "Alpine", "Amador", "Butte", "Calaveras", "Colusa", "Contra Costa",
	"Del Norte", "El Dorado", "Fresno", "Glenn", "Humboldt", "Imperial", "Inyo",
	"Kern", "Kings", "Lake", "Lassen", "Los Angeles", "Madera", "Marin", "Mariposa",
	"Mendocino", "Merced", "Modoc", "Mono", "Monterey", "Napa", "Nevada", "Orange",
	"Placer", "Plumas", "Riverside", "Sacramento", "San Benito", "San Bernardino",
	"San Diego", "San Francisco", "San Joaquin", "San Luis Obispo", "San Mateo",
	"Santa Barbara", "Santa Clara", "Santa Cruz", "Shasta", "Sierra", "Siskiyou",
	"Solano", "Sonoma", "Stanislaus", "Sutter", "Tehama", "Trinity", "Tulare",
	"Tuolumne", "Ventura", "Yolo", "Yuba",
}

var countyIndex = func() map[string]string {
	m := make(map[string]string, len(CaliforniaCounties))
	for _, c := range CaliforniaCounties {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// CanonicalCounty matches s against the California counties, ignoring case,
// extra whitespace and a trailing "County".
func CanonicalCounty(s string) (string, bool) {
	name := strings.ToLower(strings.Join(strings.Fields(s), " "))
	name = strings.TrimSuffix(name, " county")
	c, ok := countyIndex[name]
	return c, ok
}
