package catalog

// categoryStopSlugs is the fixed set of single-segment paths that look
// like brand slugs on the brand index but are actually category,
// campaign, or site pages. Slugs and visible link text are both checked
// against it. Entries are Swedish because the supported retailers are.
var categoryStopSlugs = map[string]struct{}{
	// generic categories
	"makeup":        {},
	"smink":         {},
	"hudvard":       {},
	"hudvård":       {},
	"harvard":       {},
	"hårvård":       {},
	"parfym":        {},
	"doft":          {},
	"presenttips":   {},
	"presentkort":   {},
	"kampanj":       {},
	"nyheter":       {},
	"varumarken":    {},
	"varumärken":    {},
	"sminkverktyg":  {},
	"ansiktsvard":   {},
	"ansiktsvård":   {},
	"kroppsvard":    {},
	"kroppsvård":    {},
	// site/about/misc
	"om-kicks":            {},
	"press":               {},
	"jobb":                {},
	"jobba-hos-kicks":     {},
	"integritetspolicy":   {},
	"cookies":             {},
	"kundservice":         {},
	"samarbeta-med-oss":   {},
	"vinnare":             {},
	"klubb":               {},
	"club":                {},
	"kicks-club":          {},
	"hallbarhet":          {},
	"hållbarhet":          {},
	"tavlingsvillkor":     {},
	"tävlingsvillkor":     {},
}

// inStoplist reports whether a slug or link text is a known non-brand.
func inStoplist(s string) bool {
	_, ok := categoryStopSlugs[s]
	return ok
}
