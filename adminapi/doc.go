// Package adminapi is the home-services admin dashboard's view of the
// backend: the endpoint catalog, the tag vocabulary and a typed Client.
//
// Every read goes through a cache.Store, so two screens asking for the same
// bookings page share one request, and every write invalidates the tags it
// declares:
//
//	reg, _ := adminapi.NewRegistry()
//	store := cache.NewStore(reg, executor.New(baseURL, executor.WithTokenSource(sess)))
//	client := adminapi.NewClient(store, sess)
//
//	_ = client.Login(ctx, adminapi.Credentials{Email: email, Password: pw})
//	page, _ := client.Bookings(ctx, adminapi.BookingFilter{Page: 1, Limit: 10})
//	_ = client.DeleteBooking(ctx, page.Items[0].ID) // refetches bookings
//
// Login and Logout reset the whole cache, including entries such as the
// dashboard totals that carry no tags.
package adminapi
