package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	countrySlugRe = regexp.MustCompile(`/futbol/([a-z0-9-]+)/`)
	leaguePathRe  = regexp.MustCompile(`^(/futbol/[^/]+/[^/]+/)(.*)$`)
)

// Path segments that follow the country slug position but are site sections,
// not countries.
var reservedSlugs = map[string]bool{
	"resultados":   true,
	"estadisticas": true,
}

// CountrySlugFromURL extracts the country slug from a league URL such as
// https://www.flashscore.es/futbol/espana/laliga/.
func CountrySlugFromURL(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("empty league URL")
	}
	m := countrySlugRe.FindStringSubmatch(strings.ToLower(rawURL))
	if m == nil {
		return "", fmt.Errorf("no country slug in URL %q", rawURL)
	}
	if reservedSlugs[m[1]] {
		return "", fmt.Errorf("reserved path segment %q is not a country slug", m[1])
	}
	return m[1], nil
}

// normalizeResultsURL rewrites a league URL so it points at the finished
// matches listing. Fixture URLs ("/partidos/") become results URLs, bare
// league URLs get "resultados/" appended. Unparseable input is returned as is.
func normalizeResultsURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)
	if cleaned == "" {
		return rawURL
	}
	if !strings.HasSuffix(cleaned, "/") {
		cleaned += "/"
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return rawURL
	}

	switch {
	case strings.Contains(u.Path, "/partidos/"):
		u.Path = strings.Replace(u.Path, "/partidos/", "/resultados/", 1)
	default:
		if m := leaguePathRe.FindStringSubmatch(u.Path); m != nil && m[2] == "" {
			u.Path = m[1] + "resultados/"
		}
	}
	return u.String()
}

// forceResultsURL fixes the landed URL when the site redirected a results
// request back to the fixtures tab.
func forceResultsURL(current string) string {
	if strings.Contains(current, "/partidos/") {
		return strings.Replace(current, "/partidos/", "/resultados/", 1)
	}
	return current
}

// countryNameFromSlug is the display-name fallback when the breadcrumb cannot
// be read: "arabia-saudita" becomes "Arabia Saudita".
func countryNameFromSlug(slug string) string {
	var words []string
	for _, p := range strings.Split(slug, "-") {
		if p == "" {
			continue
		}
		words = append(words, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(words, " ")
}
