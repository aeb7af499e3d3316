package adminapi

import "github.com/goliatone/go-query-cache/executor"

// BookingFilter selects a page of bookings. An empty Status is still sent,
// the backend treats it as "any".
type BookingFilter struct {
	Page   int    `url:"page"`
	Limit  int    `url:"limit"`
	Status string `url:"status"`
}

// ListFilter pages through customers and services.
type ListFilter struct {
	Page   int    `url:"page"`
	Limit  int    `url:"limit"`
	SortBy string `url:"sortOrder"`
}

// Period selects an analytics window. Month is optional.
type Period struct {
	Year  int `url:"year"`
	Month int `url:"month,omitempty"`
}

// ManagerSearch filters the manager list by name or email.
type ManagerSearch struct {
	Search string `url:"search"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OTP struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type PasswordChange struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type PasswordReset struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

type Booking struct {
	ID          string  `json:"_id"`
	Status      string  `json:"status"`
	ServiceName string  `json:"serviceName,omitempty"`
	Customer    string  `json:"customer,omitempty"`
	Worker      string  `json:"worker,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Date        string  `json:"date,omitempty"`
}

type Customer struct {
	ID        string `json:"_id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	IsBlocked bool   `json:"isBlocked"`
}

type Worker struct {
	ID        string `json:"_id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	State     string `json:"state,omitempty"`
	IsBlocked bool   `json:"isBlocked"`
}

type Service struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Duration    int     `json:"duration,omitempty"`
}

type Manager struct {
	ID        string `json:"_id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	IsBlocked bool   `json:"isBlocked"`
}

type State struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type ContactMessage struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// DashboardStatus is the "attributes" block of the totals endpoint.
type DashboardStatus struct {
	TotalUsers    int     `json:"totalUsers"`
	TotalWorkers  int     `json:"totalWorkers"`
	TotalBookings int     `json:"totalBookings"`
	TotalIncome   float64 `json:"totalIncome"`
}

// List is one page of a collection together with its paging block.
type List[T any] struct {
	Items      []T
	Pagination *executor.Pagination
}
