// Package endpoint declares the named remote operations a client may call.
//
// An Operation is plain data: a name, a kind (query or mutation), an HTTP
// method, a path template and the cache tags it provides or invalidates.
// Operations are collected once at startup into a Registry:
//
//	reg, err := endpoint.Register([]endpoint.Operation{
//		endpoint.Query("getAllBookings", http.MethodGet, "/booking/get-all-bookings", "bookings"),
//		endpoint.Mutation("deleteBooking", http.MethodDelete, "/booking/delete-booking/{id}", "bookings"),
//	})
//
// Register fails fast on duplicate names or malformed definitions.
//
// # Request building
//
// Without a custom Build function, arguments are turned into a request as
// follows. Scalars fill the single "{param}" placeholder. Structs are encoded
// with their `url` tags and maps are used directly; placeholders consume
// matching values, the rest become the query string for GET and DELETE or
// the JSON body for writes. Arguments implementing Bodied supply their own
// body.
//
// # Tags
//
// Tags are snake_cased resource names ("bookings", "site_content"). A tag may
// be narrowed to one instance with Qualified ("services:42"); a bare resource
// tag intersects every instance of that resource.
package endpoint
