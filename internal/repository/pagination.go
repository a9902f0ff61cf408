package repository

// Page bounds a list query.
type Page struct {
	Page  int
	Limit int
}

func (p Page) offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.limit()
}

func (p Page) limit() int {
	if p.Limit < 1 {
		return 20
	}
	return p.Limit
}
