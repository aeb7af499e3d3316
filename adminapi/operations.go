package adminapi

import (
	"fmt"
	"net/http"
	"net/url"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-query-cache/endpoint"
)

// Operation names.
const (
	OpLogin          = "login"
	OpRegister       = "register"
	OpLogout         = "logout"
	OpForgotPassword = "forgotPassword"
	OpVerifyOTP      = "verifyOtp"
	OpVerifyEmail    = "verifyEmail"
	OpResetPassword  = "resetPassword"

	OpGetAllBookings      = "getAllBookings"
	OpGetAllTransactions  = "getAllTransactions"
	OpGetBookingsTrends   = "getBookingsTrends"
	OpGetUpcomingBookings = "getUpcomingBookings"
	OpDeleteBooking       = "deleteBooking"
	OpDeleteTransaction   = "deleteTransaction"

	OpGetAllUsers         = "getAllUsers"
	OpToggleBlockUnblock  = "toggleBlockUnblock"
	OpGetAllWorkers       = "getAllWorkers"
	OpCreateWorker        = "createWorker"
	OpDeleteWorker        = "deleteWorker"
	OpGetAllServices      = "getAllServices"
	OpGetServiceByID      = "getServiceById"
	OpAddService          = "addService"
	OpUpdateService       = "updateService"
	OpDeleteService       = "deleteService"
	OpGetAllState         = "getAllState"
	OpActiveState         = "activeState"
	OpGetAboutUs          = "getAboutUs"
	OpUpdateAboutUs       = "updateAboutUs"
	OpGetDynamicBanner    = "getDynamicBanner"
	OpCreateDynamicMedia  = "createDynamicMedia"
	OpGetPrivacyPolicy    = "getPrivacyPolicy"
	OpUpdatePrivacyPolicy = "updatePrivacyPolicy"
	OpGetMyProfile        = "getMyProfile"
	OpUpdateProfile       = "updateProfile"
	OpChangePassword      = "changePassword"
	OpGetAllMessages      = "getAllMessages"
	OpDeleteContactUs     = "deleteContactUs"

	OpGetDashboardStatus = "getDashboardStatus"
	OpGetIncomeRatio     = "getIncomeRatio"
	OpGetSingleManager   = "getSingleManager"

	OpServicePopularity = "servicePopularity"
	OpWorkerPopularity  = "workerPopularity"
	OpBookingTrends     = "bookingTrends"
	OpBookingRevenue    = "bookingRevenue"

	OpGetAllManagers      = "getAllManagers"
	OpGetAllAccessibility = "getAllAccessibility"
	OpCreateManager       = "createManager"
	OpUpdateManagerAccess = "updateManagerAccess"
	OpBlockManager        = "blockManager"
)

// UpcomingLimit is how many upcoming bookings the dashboard shows.
const UpcomingLimit = 5

// Operations returns the dashboard's endpoint catalog.
func Operations() []endpoint.Operation {
	get, post, patch, del := http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete

	serviceByID := endpoint.Query(OpGetServiceByID, get, "/service/get-one-service/{id}", TagServices)
	serviceByID.ProvidesFor = idTag(ServiceTag)

	updateService := endpoint.Mutation(OpUpdateService, patch, "/service/update-service/{id}", TagServices)
	updateService.InvalidatesFor = idTag(ServiceTag)

	deleteService := endpoint.Mutation(OpDeleteService, del, "/service/delete-service/{id}", TagServices)
	deleteService.InvalidatesFor = idTag(ServiceTag)

	bookingsTrends := endpoint.Query(OpGetBookingsTrends, get, "/booking/booking-trends", TagBookings)
	bookingsTrends.Build = yearQuery("/booking/booking-trends")

	incomeRatio := endpoint.Query(OpGetIncomeRatio, get, "/admin/getIncomeRatio")
	incomeRatio.Build = yearQuery("/admin/getIncomeRatio")

	upcoming := endpoint.Query(OpGetUpcomingBookings, get, "/booking/get-all-bookings", TagBookings)
	upcoming.Build = fixedQuery("/booking/get-all-bookings", url.Values{
		"page":       {"1"},
		"limit":      {fmt.Sprint(UpcomingLimit)},
		"status":     {"booked"},
		"filterType": {"upcoming"},
	})

	return []endpoint.Operation{
		endpoint.Mutation(OpLogin, post, "/manager/login"),
		endpoint.Mutation(OpRegister, post, "/auth/register"),
		endpoint.Mutation(OpLogout, post, "/logout"),
		endpoint.Mutation(OpForgotPassword, post, "/manager/forgot-password"),
		endpoint.Mutation(OpVerifyOTP, post, "/manager/verify-otp"),
		endpoint.Mutation(OpVerifyEmail, post, "/auth/verify-email"),
		endpoint.Mutation(OpResetPassword, post, "/manager/set-new-password"),

		endpoint.Query(OpGetAllBookings, get, "/booking/get-all-bookings", TagBookings),
		endpoint.Query(OpGetAllTransactions, get, "/booking/get-all-transactions", TagBookings),
		bookingsTrends,
		upcoming,
		endpoint.Mutation(OpDeleteBooking, del, "/booking/delete-booking/{id}", TagBookings),
		endpoint.Mutation(OpDeleteTransaction, del, "/booking/delete-transaction/{id}", TagBookings),

		endpoint.Query(OpGetAllUsers, get, "/customer/get-all-customers", TagUsers),
		endpoint.Mutation(OpToggleBlockUnblock, patch, "/customer-or-worker/update-block-unblock/{id}", TagWorkers, TagUsers),

		endpoint.Query(OpGetAllWorkers, get, "/worker/get-all-worker", TagWorkers),
		endpoint.Mutation(OpCreateWorker, post, "/worker/register", TagWorkers),
		// The backend removes workers through the profile update endpoint.
		endpoint.Mutation(OpDeleteWorker, patch, "/manager/update-profile", TagWorkers),

		endpoint.Query(OpGetAllServices, get, "/service/get-all-services", TagServices),
		serviceByID,
		endpoint.Mutation(OpAddService, post, "/service/create-service", TagServices),
		updateService,
		deleteService,

		endpoint.Query(OpGetAllState, get, "/state/get-all-state", TagStates),
		endpoint.Mutation(OpActiveState, patch, "/state/update-state/{id}", TagStates),

		endpoint.Query(OpGetAboutUs, get, "/public/get-about-us", TagSiteContent),
		endpoint.Mutation(OpUpdateAboutUs, patch, "/public/create-or-update-about-us", TagSiteContent),
		endpoint.Query(OpGetDynamicBanner, get, "/photo/get-all-dynamic-photo", TagSiteContent),
		endpoint.Mutation(OpCreateDynamicMedia, post, "/photo/create-dynamic-photo-or-video", TagSiteContent),

		endpoint.Query(OpGetPrivacyPolicy, get, "/public/get-privacy-policy", TagPrivacy),
		endpoint.Mutation(OpUpdatePrivacyPolicy, patch, "/public/create-or-update-privacy-policy", TagPrivacy),

		endpoint.Query(OpGetMyProfile, get, "/manager/me", TagUsers),
		endpoint.Mutation(OpUpdateProfile, patch, "/manager/update-profile", TagUsers),
		endpoint.Mutation(OpChangePassword, post, "/manager/change-password", TagUsers),

		endpoint.Query(OpGetAllMessages, get, "/public/get-contact-us", TagHelpSupport),
		endpoint.Mutation(OpDeleteContactUs, del, "/public/delete-contact-us/{id}", TagHelpSupport),

		endpoint.Query(OpGetDashboardStatus, get, "/admin/getTotalStatus"),
		incomeRatio,
		endpoint.Query(OpGetSingleManager, get, "/manager/me", TagManagers, TagUsers),

		endpoint.Query(OpServicePopularity, get, "/service/popularity", TagAnalytics),
		endpoint.Query(OpWorkerPopularity, get, "/booking/popularity", TagAnalytics),
		endpoint.Query(OpBookingTrends, get, "/booking/booking-trends", TagAnalytics),
		endpoint.Query(OpBookingRevenue, get, "/booking/get-monthly-revenue", TagAnalytics),

		endpoint.Query(OpGetAllManagers, get, "/manager/get-all-managers", TagManagers),
		endpoint.Query(OpGetAllAccessibility, get, "/accessibility/get-all-accessibility", TagManagers),
		endpoint.Mutation(OpCreateManager, post, "/manager/register", TagManagers),
		endpoint.Mutation(OpUpdateManagerAccess, patch, "/accessibility/update-status-accessibility/{id}", TagManagers),
		endpoint.Mutation(OpBlockManager, patch, "/manager/block-unblock/{id}", TagManagers),
	}
}

// NewRegistry registers the catalog restricted to TagTypes.
func NewRegistry() (*endpoint.Registry, error) {
	return endpoint.Register(Operations(), endpoint.WithTagTypes(TagTypes()...))
}

// idTag derives a per-instance tag from an id argument, either a bare
// string or an endpoint.Update.
func idTag(tag func(string) endpoint.Tag) endpoint.TagsFunc {
	return func(args any) endpoint.Tags {
		switch v := args.(type) {
		case string:
			if v != "" {
				return endpoint.Tags{tag(v)}
			}
		case endpoint.Update:
			if v.ID != "" {
				return endpoint.Tags{tag(v.ID)}
			}
		}
		return nil
	}
}

// yearQuery builds "path?year=<args>" for endpoints that take a bare year.
func yearQuery(path string) endpoint.BuildFunc {
	return func(args any) (endpoint.Request, error) {
		switch args.(type) {
		case int, int32, int64, string:
		default:
			return endpoint.Request{}, goerrors.New(fmt.Sprintf("%s: year must be a number, got %T", path, args), goerrors.CategoryValidation).
				WithTextCode("BAD_REQUEST_ARGS")
		}
		return endpoint.Request{
			Method: http.MethodGet,
			Path:   path,
			Query:  url.Values{"year": {fmt.Sprint(args)}},
		}, nil
	}
}

func fixedQuery(path string, values url.Values) endpoint.BuildFunc {
	return func(any) (endpoint.Request, error) {
		q := url.Values{}
		for k, v := range values {
			q[k] = append([]string(nil), v...)
		}
		return endpoint.Request{Method: http.MethodGet, Path: path, Query: q}, nil
	}
}
