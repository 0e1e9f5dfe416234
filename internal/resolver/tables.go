package resolver

// Tables holds the static lookup tables resolution depends on.
//
// Design decision: These are immutable configuration data loaded once at
// startup and passed explicitly into resolver construction, never mutated at
// runtime. Keeping them explicit rather than package-global makes the
// precedence between aliasing and obsolescence testable.
type Tables struct {
	// Aliases maps deprecated or renamed shortnames to their current
	// shortname. Alias resolution runs before the obsolescence check, so an
	// aliased-then-obsolete name is classified under its new shortname.
	Aliases map[string]string

	// Outdated is the set of shortnames of specs that have been superseded
	// and should no longer be referenced. A match is reported as an
	// outdatedSpec anomaly rather than resolved to a descriptor.
	Outdated map[string]bool
}

// DefaultTables returns the built-in alias and obsolescence tables.
// Callers may extend the returned tables (e.g. from the config file) before
// constructing the resolver.
func DefaultTables() *Tables {
	return &Tables{
		Aliases: map[string]string{
			// Pre-modularization CSS shortnames folded into leveled modules.
			"css3-color":           "css-color-3",
			"css3-values":          "css-values-3",
			"css3-background":      "css-backgrounds-3",
			"css3-mediaqueries":    "mediaqueries-3",
			"css3-selectors":       "selectors-3",
			"selectors4":           "selectors-4",
			"css3-fonts":           "css-fonts-3",
			"css3-transitions":     "css-transitions-1",
			"css3-animations":      "css-animations-1",
			"css3-flexbox":         "css-flexbox-1",
			"css-grid":             "css-grid-1",
			"css3-align":           "css-align-3",
			"css3-images":          "css-images-3",
			"css3-speech":          "css-speech-1",
			"css3-transforms":      "css-transforms-1",
			"css-cascade":          "css-cascade-3",
			"css3-page":            "css-page-3",
			"css3-break":           "css-break-3",
			"css-masking":          "css-masking-1",
			"css3-conditional":     "css-conditional-3",
			"css3-namespace":       "css-namespaces-3",
			"css3-syntax":          "css-syntax-3",
			"css-timing":           "css-easing-1",
			"css3-positioning":     "css-position-3",
			"css-round-display":    "css-rhythm-1",
			"WebIDL":               "webidl",
			"2dcontext":            "html",
			"webmessaging":         "html",
			"workers":              "html",
			"websockets":           "websockets",
			"hr-time-2":            "hr-time-3",
			"mixedcontent":         "mixed-content",
			"powerfulfeatures":     "secure-contexts",
			"custom-elements":      "html",
			"shadow-dom":           "dom",
			"pointerevents2":       "pointerevents3",
			"resource-timing-1":    "resource-timing",
			"resource-timing-2":    "resource-timing",
			"InputEvents":          "input-events-2",
			"staticrange":          "dom",
			"typed-array":          "ecmascript",
			"es6":                  "ecmascript",
			"ecma-262":             "ecmascript",
			"feature-policy":       "permissions-policy",
			"intersectionobserver": "intersection-observer",
		},
		Outdated: map[string]bool{
			// Superseded by the WHATWG living standards.
			"html5":            true,
			"html51":           true,
			"html52":           true,
			"dom41":            true,
			"webstorage":       true,
			"selectors-api":    true,
			"selectors-api-2":  true,
			"microdata":        true,
			"webdatabase":      true,
			"domparsing":       true,
			"cors":             true,
			"url-1":            true,
			"dom-level-3-core": true,
			"dom-level-2-html": true,
			"charmod-norm":     true,
			"xhtml1":           true,
			"xhtml11":          true,
			"css3-box":         true,
			"css3-content":     true,
			"REC-DOM-Level-1":  true,
		},
	}
}

// ExtendAliases merges extra alias entries into the tables.
// Existing entries are not overridden; the built-in table wins on conflict.
func (t *Tables) ExtendAliases(extra map[string]string) {
	for from, to := range extra {
		if _, exists := t.Aliases[from]; !exists {
			t.Aliases[from] = to
		}
	}
}

// ExtendOutdated adds extra shortnames to the obsolescence set.
func (t *Tables) ExtendOutdated(extra []string) {
	for _, name := range extra {
		t.Outdated[name] = true
	}
}
