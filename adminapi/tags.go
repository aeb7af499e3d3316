package adminapi

import "github.com/goliatone/go-query-cache/endpoint"

// Tag types used by the dashboard endpoints.
const (
	TagBookings    endpoint.Tag = "bookings"
	TagUsers       endpoint.Tag = "users"
	TagWorkers     endpoint.Tag = "workers"
	TagStates      endpoint.Tag = "states"
	TagServices    endpoint.Tag = "services"
	TagSiteContent endpoint.Tag = "site_content"
	TagPrivacy     endpoint.Tag = "privacy"
	TagHelpSupport endpoint.Tag = "help_support"
	TagManagers    endpoint.Tag = "managers"
	TagAnalytics   endpoint.Tag = "analytics"
)

// TagTypes returns every tag an operation in the catalog may use.
func TagTypes() endpoint.Tags {
	return endpoint.Tags{
		TagBookings,
		TagUsers,
		TagWorkers,
		TagStates,
		TagServices,
		TagSiteContent,
		TagPrivacy,
		TagHelpSupport,
		TagManagers,
		TagAnalytics,
	}
}

// ServiceTag narrows the services tag to one service.
func ServiceTag(id string) endpoint.Tag {
	return TagServices.Qualified(id)
}
