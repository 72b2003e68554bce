package sitemap

// URLSet is an insertion-ordered set of absolute URLs. First-seen order
// is preserved because callers treat order as a priority signal when
// truncating to a page limit.
type URLSet struct {
	seen  map[string]struct{}
	order []string
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add inserts a URL, reporting whether it was newly added.
func (s *URLSet) Add(url string) bool {
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Contains reports whether the URL is in the set.
func (s *URLSet) Contains(url string) bool {
	_, ok := s.seen[url]
	return ok
}

// Len returns the number of URLs in the set.
func (s *URLSet) Len() int {
	return len(s.order)
}

// URLs returns the URLs in first-seen order. The returned slice is a copy.
func (s *URLSet) URLs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Truncated returns at most n URLs in first-seen order.
func (s *URLSet) Truncated(n int) []string {
	if n < 0 || n >= len(s.order) {
		return s.URLs()
	}
	out := make([]string, n)
	copy(out, s.order[:n])
	return out
}
