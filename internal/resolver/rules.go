package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

// shortnameRe is the strict character-class validator for derived shortnames:
// word characters and hyphens, with at most one trailing fractional-level
// suffix (e.g. "css-cascade-4", "svg1.1"). A derivation that fails this check
// is rejected rather than guessed at.
var shortnameRe = regexp.MustCompile(`^[\w-]+(\.\d+)?$`)

// hostRule derives a shortname from a URL hosted on a known spec host.
// It returns the derived shortname and whether the rule applied.
type hostRule func(u *url.URL) (string, bool)

// hostRules is the ordered battery of host-specific shortname-extraction
// rules. The first matching rule wins; order matters because later rules are
// more generic.
var hostRules = []hostRule{
	whatwgRule,
	githubPagesRule,
	csswgDraftsRule,
	svgwgRule,
	khronosRule,
	tc39Rule,
}

// whatwgRule handles WHATWG living standards: https://<name>.spec.whatwg.org/.
func whatwgRule(u *url.URL) (string, bool) {
	host := u.Hostname()
	if !strings.HasSuffix(host, ".spec.whatwg.org") {
		return "", false
	}
	name := strings.TrimSuffix(host, ".spec.whatwg.org")
	return name, name != ""
}

// githubPagesRule handles GitHub Pages drafts: https://<org>.github.io/<name>/.
func githubPagesRule(u *url.URL) (string, bool) {
	if !strings.HasSuffix(u.Hostname(), ".github.io") {
		return "", false
	}
	return firstPathSegment(u)
}

// csswgDraftsRule handles CSS Working Group draft hosts:
// https://drafts.csswg.org/<name>/, plus the Houdini and FX task force hosts.
func csswgDraftsRule(u *url.URL) (string, bool) {
	switch u.Hostname() {
	case "drafts.csswg.org", "drafts.css-houdini.org", "drafts.fxtf.org":
		return firstPathSegment(u)
	}
	return "", false
}

// svgwgRule handles SVG Working Group drafts: https://svgwg.org/specs/<name>/
// and https://svgwg.org/svg2-draft/ (the SVG 2 editor's draft).
func svgwgRule(u *url.URL) (string, bool) {
	if u.Hostname() != "svgwg.org" {
		return "", false
	}
	segments := pathSegments(u)
	if len(segments) == 0 {
		return "", false
	}
	if segments[0] == "svg2-draft" {
		return "SVG2", true
	}
	if segments[0] == "specs" && len(segments) > 1 {
		return "svg-" + segments[1], true
	}
	return "", false
}

// khronosRule handles the Khronos registry:
// https://registry.khronos.org/<name>/.
func khronosRule(u *url.URL) (string, bool) {
	if u.Hostname() != "registry.khronos.org" && u.Hostname() != "www.khronos.org" {
		return "", false
	}
	segments := pathSegments(u)
	// Older URLs nest under /registry/<name>/.
	if len(segments) > 1 && segments[0] == "registry" {
		return segments[1], true
	}
	if len(segments) > 0 {
		return segments[0], true
	}
	return "", false
}

// tc39Rule handles TC39 proposals and ECMA standards: https://tc39.es/<name>/.
func tc39Rule(u *url.URL) (string, bool) {
	if u.Hostname() != "tc39.es" && u.Hostname() != "tc39.github.io" {
		return "", false
	}
	return firstPathSegment(u)
}

// deriveShortname applies the ordered rule battery to a parsed URL.
// The derived name must pass the strict shortname validator or the
// derivation is rejected entirely.
func deriveShortname(u *url.URL) (string, bool) {
	for _, rule := range hostRules {
		if name, ok := rule(u); ok {
			if shortnameRe.MatchString(name) {
				return name, true
			}
			return "", false
		}
	}
	return "", false
}

// firstPathSegment returns the first non-empty path segment.
func firstPathSegment(u *url.URL) (string, bool) {
	segments := pathSegments(u)
	if len(segments) == 0 {
		return "", false
	}
	return segments[0], true
}

// pathSegments splits a URL path into its non-empty segments.
func pathSegments(u *url.URL) []string {
	var out []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
