package model

// PageData is what a layout template executes against.
type PageData struct {
	Site *SiteData
	Page *Page
}

// PageTitle is the document title: the page's own title followed by the site
// title, or just the site title when they coincide.
func (d PageData) PageTitle() string {
	if d.Page == nil || d.Page.Title == "" || d.Page.Title == d.Site.Title {
		return d.Site.Title
	}
	return d.Page.Title + " | " + d.Site.Title
}

// MetaDescription prefers the page description over the site one.
func (d PageData) MetaDescription() string {
	if d.Page != nil && d.Page.Description != "" {
		return d.Page.Description
	}
	return d.Site.Description
}
