package demoapp

import (
	"github.com/go-chi/chi/v5"
)

// RouteGroup is a set of routes mounted under Prefix. An empty prefix
// registers the routes at the router root.
type RouteGroup struct {
	Name     string
	Prefix   string
	Register func(r chi.Router)
}

// RouteContributor decides, from the Container's settings, whether to
// contribute a route group. Returning false is a valid outcome.
type RouteContributor func(c *Container) (RouteGroup, bool)

func (c *Container) mountRoutes() {
	for _, contribute := range c.contributors {
		group, ok := contribute(c)
		if !ok || group.Register == nil {
			continue
		}
		if group.Prefix == "" {
			c.router.Group(group.Register)
		} else {
			c.router.Route(group.Prefix, group.Register)
		}
		name := group.Name
		if name == "" {
			name = group.Prefix
		}
		c.routeGroups = append(c.routeGroups, name)
	}
}

// Routes lists the names of the route groups that were mounted.
func (c *Container) Routes() []string {
	return append([]string(nil), c.routeGroups...)
}
