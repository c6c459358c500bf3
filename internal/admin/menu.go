package admin

// MenuPage is a top-level admin page or, with Parent set, a submenu entry.
type MenuPage struct {
	hooked

	reg *Registry

	Title      string
	MenuTitle  string
	Capability string
	Slug       string
	Parent     string
	Icon       string
	Position   int
}

// NewMenuPage describes a page. Nothing is registered until Register.
func NewMenuPage(reg *Registry, title, menuTitle, capability, slug string) *MenuPage {
	if menuTitle == "" {
		menuTitle = title
	}
	return &MenuPage{reg: reg, Title: title, MenuTitle: menuTitle, Capability: capability, Slug: slug}
}

// Register adds the page when admin_menu fires.
func (p *MenuPage) Register() {
	p.register(p.reg.bus, hookMenu, func() {
		p.reg.mu.Lock()
		p.reg.pages[p.Slug] = p
		p.reg.mu.Unlock()
	})
}

// Unregister removes the page.
func (p *MenuPage) Unregister() {
	p.unregister(func() {
		p.reg.mu.Lock()
		delete(p.reg.pages, p.Slug)
		p.reg.mu.Unlock()
	})
}
