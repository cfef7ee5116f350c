package service

import "estate-web/internal/model"

type NavLink struct {
	Label string
	Href  string
	// Post marks links that must be submitted as a form (logout).
	Post bool
}

// NavLinks lists the navigation entries the given user may see.
func NavLinks(user *model.SessionUser) []NavLink {
	links := []NavLink{{Label: "Listings", Href: "/listings"}}

	if user == nil {
		return append(links,
			NavLink{Label: "Sign in", Href: "/login"},
			NavLink{Label: "Register", Href: "/register"},
		)
	}

	links = append(links, NavLink{Label: "New listing", Href: "/listings/new"})
	if CanAdminister(user) {
		links = append(links, NavLink{Label: "Users", Href: "/admin/users"})
	}
	return append(links, NavLink{Label: "Sign out", Href: "/logout", Post: true})
}
