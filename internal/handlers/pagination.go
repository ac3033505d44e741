package handlers

// PageLimits bounds list pagination for the HTTP surface
type PageLimits struct {
	Default int
	Max     int
}

// clamp normalizes a requested page and limit: out-of-range values fall back
// to page 1 and the default page size
func (p PageLimits) clamp(page, limit int) (int, int) {
	def := p.Default
	if def <= 0 {
		def = 20
	}
	max := p.Max
	if max <= 0 {
		max = 100
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > max {
		limit = def
	}
	return page, limit
}
