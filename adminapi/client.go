package adminapi

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/endpoint"
	"github.com/goliatone/go-query-cache/executor"
	"github.com/goliatone/go-query-cache/session"
)

// Client is the typed dashboard API over a cache store. Reads go through the
// cache, writes invalidate it.
type Client struct {
	store   *cache.Store
	session *session.State
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient wraps store and sess. The executor behind store should read its
// bearer token from sess.
func NewClient(store *cache.Store, sess *session.State, opts ...Option) *Client {
	c := &Client{
		store:   store,
		session: sess,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() *cache.Store { return c.store }

func (c *Client) Session() *session.State { return c.session }

// LoggedIn reports whether a session token is held.
func (c *Client) LoggedIn() bool {
	_, ok := c.session.Token()
	return ok
}

type loginResponse struct {
	Token string `json:"token"`
	Data  struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Login exchanges credentials for a token and stores it in the session.
// Cached data from any previous session is reset.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	res, err := c.store.Mutate(ctx, OpLogin, creds)
	if err != nil {
		return err
	}
	if !res.OK() {
		return res.Err
	}

	body, err := executor.DecodeBody[loginResponse](res.Payload)
	if err != nil {
		return err
	}
	token := body.Data.Token
	if token == "" {
		token = body.Token
	}
	if token == "" {
		return goerrors.New("login response carries no token", goerrors.CategoryExternal).
			WithTextCode("MISSING_TOKEN")
	}

	if err := c.session.Login(ctx, token); err != nil {
		return err
	}
	c.store.Reset()
	c.logger.Info("logged in", zap.String("email", creds.Email))
	return nil
}

// Logout calls the logout endpoint, then clears the session and every
// cached entry whether or not the call succeeded. The endpoint's error is
// returned after the local state is gone.
func (c *Client) Logout(ctx context.Context) error {
	res, err := c.store.Mutate(ctx, OpLogout, nil)
	if err == nil {
		err = res.ErrorOrNil()
	}
	if err != nil {
		c.logger.Warn("logout endpoint failed", zap.Error(err))
	}

	if sessErr := c.session.Logout(ctx); sessErr != nil {
		return sessErr
	}
	touched := c.store.Reset()
	c.logger.Info("logged out", zap.Int("evicted", touched))
	return err
}

func (c *Client) Register(ctx context.Context, data any) error {
	return c.mutate(ctx, OpRegister, data)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.mutate(ctx, OpForgotPassword, map[string]string{"email": email})
}

func (c *Client) VerifyOTP(ctx context.Context, otp OTP) error {
	return c.mutate(ctx, OpVerifyOTP, otp)
}

func (c *Client) ResetPassword(ctx context.Context, reset PasswordReset) error {
	return c.mutate(ctx, OpResetPassword, reset)
}

func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) error {
	return c.mutate(ctx, OpChangePassword, change)
}

func (c *Client) Bookings(ctx context.Context, f BookingFilter) (List[Booking], error) {
	return list[Booking](ctx, c.store, OpGetAllBookings, f)
}

func (c *Client) UpcomingBookings(ctx context.Context) ([]Booking, error) {
	l, err := list[Booking](ctx, c.store, OpGetUpcomingBookings, nil)
	return l.Items, err
}

// WatchBookings subscribes to a bookings page. fn receives every state
// change; close the returned subscription to stop.
func (c *Client) WatchBookings(ctx context.Context, f BookingFilter, fn func(List[Booking], cache.Snapshot)) (*cache.Subscription, error) {
	return c.store.Subscribe(ctx, OpGetAllBookings, f, func(snap cache.Snapshot) {
		items, err := cache.Data[[]Booking](snap)
		if err != nil {
			c.logger.Warn("bookings payload not decodable", zap.String("key", snap.Key), zap.Error(err))
		}
		out := List[Booking]{Items: items}
		if snap.Data != nil {
			out.Pagination = snap.Data.Pagination
		}
		fn(out, snap)
	})
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.mutate(ctx, OpDeleteBooking, id)
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.mutate(ctx, OpDeleteTransaction, id)
}

func (c *Client) Users(ctx context.Context, f ListFilter) (List[Customer], error) {
	return list[Customer](ctx, c.store, OpGetAllUsers, f)
}

// ToggleBlock blocks or unblocks a customer or worker.
func (c *Client) ToggleBlock(ctx context.Context, id string) error {
	return c.mutate(ctx, OpToggleBlockUnblock, id)
}

func (c *Client) Workers(ctx context.Context) ([]Worker, error) {
	l, err := list[Worker](ctx, c.store, OpGetAllWorkers, nil)
	return l.Items, err
}

func (c *Client) CreateWorker(ctx context.Context, data any) error {
	return c.mutate(ctx, OpCreateWorker, data)
}

func (c *Client) Services(ctx context.Context, f ListFilter) (List[Service], error) {
	return list[Service](ctx, c.store, OpGetAllServices, f)
}

func (c *Client) Service(ctx context.Context, id string) (Service, error) {
	svc, _, err := cache.QueryData[Service](ctx, c.store, OpGetServiceByID, id)
	return svc, err
}

func (c *Client) AddService(ctx context.Context, data any) error {
	return c.mutate(ctx, OpAddService, data)
}

func (c *Client) UpdateService(ctx context.Context, id string, data any) error {
	return c.mutate(ctx, OpUpdateService, endpoint.Update{ID: id, Data: data})
}

func (c *Client) DeleteService(ctx context.Context, id string) error {
	return c.mutate(ctx, OpDeleteService, id)
}

func (c *Client) States(ctx context.Context) ([]State, error) {
	l, err := list[State](ctx, c.store, OpGetAllState, nil)
	return l.Items, err
}

// SetStateActive toggles whether a state is served.
func (c *Client) SetStateActive(ctx context.Context, id string, active bool) error {
	return c.mutate(ctx, OpActiveState, endpoint.Update{ID: id, Data: map[string]bool{"isActive": active}})
}

func (c *Client) Messages(ctx context.Context) ([]ContactMessage, error) {
	l, err := list[ContactMessage](ctx, c.store, OpGetAllMessages, nil)
	return l.Items, err
}

func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.mutate(ctx, OpDeleteContactUs, id)
}

// DashboardStatus returns the totals shown on the dashboard home.
func (c *Client) DashboardStatus(ctx context.Context) (DashboardStatus, error) {
	out, _, err := cache.QueryData[struct {
		Attributes DashboardStatus `json:"attributes"`
	}](ctx, c.store, OpGetDashboardStatus, nil)
	return out.Attributes, err
}

func (c *Client) Managers(ctx context.Context, search string) ([]Manager, error) {
	l, err := list[Manager](ctx, c.store, OpGetAllManagers, ManagerSearch{Search: search})
	return l.Items, err
}

// BlockManager toggles a manager's blocked flag. The cached list for search
// shows the new state immediately and reverts if the call fails.
func (c *Client) BlockManager(ctx context.Context, search, id string) error {
	return c.mutate(ctx, OpBlockManager, id,
		cache.WithOptimisticUpdate(OpGetAllManagers, ManagerSearch{Search: search}, toggleBlocked(id)),
	)
}

func (c *Client) mutate(ctx context.Context, op string, args any, opts ...cache.MutateOption) error {
	res, err := c.store.Mutate(ctx, op, args, opts...)
	if err != nil {
		return err
	}
	return res.ErrorOrNil()
}

func list[T any](ctx context.Context, store *cache.Store, op string, args any) (List[T], error) {
	items, snap, err := cache.QueryData[[]T](ctx, store, op, args)
	out := List[T]{Items: items}
	if snap.Data != nil {
		out.Pagination = snap.Data.Pagination
	}
	return out, err
}

// toggleBlocked flips isBlocked on the record with _id == id, keeping every
// other field the backend sent.
func toggleBlocked(id string) cache.PatchFunc {
	return func(p *executor.Payload) (*executor.Payload, error) {
		records, err := executor.DecodeData[[]map[string]any](p)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r["_id"] == id {
				blocked, _ := r["isBlocked"].(bool)
				r["isBlocked"] = !blocked
			}
		}
		return p.WithData(records)
	}
}
