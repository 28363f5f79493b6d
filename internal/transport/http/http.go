package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/denteo/labflow/internal/service/models/analytics"
	"github.com/denteo/labflow/internal/service/models/history"
	"github.com/denteo/labflow/internal/service/models/order"
	"github.com/denteo/labflow/internal/service/models/station"
	"github.com/denteo/labflow/internal/service/models/status"
	"github.com/denteo/labflow/internal/service/models/user"
	analyticsreport "github.com/denteo/labflow/internal/transport/http/analytics_report"
	"github.com/denteo/labflow/internal/transport/http/attachments"
	changestatus "github.com/denteo/labflow/internal/transport/http/change_status"
	createorder "github.com/denteo/labflow/internal/transport/http/create_order"
	"github.com/denteo/labflow/internal/transport/http/events"
	exportreport "github.com/denteo/labflow/internal/transport/http/export_report"
	floorlayout "github.com/denteo/labflow/internal/transport/http/floor_layout"
	getorder "github.com/denteo/labflow/internal/transport/http/get_order"
	listorders "github.com/denteo/labflow/internal/transport/http/list_orders"
	listusers "github.com/denteo/labflow/internal/transport/http/list_users"
	"github.com/denteo/labflow/internal/transport/http/login"
	orderhistory "github.com/denteo/labflow/internal/transport/http/order_history"
	updateorder "github.com/denteo/labflow/internal/transport/http/update_order"
	authmiddleware "github.com/denteo/labflow/pkg/http/middleware/auth"
	"github.com/denteo/labflow/pkg/http/middleware/trace"
	"github.com/denteo/labflow/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"github.com/xuri/excelize/v2"
)

// orderService is an interface for the order intake and tracking operations.
type orderService interface {
	SubmitOrder(ctx context.Context, o order.Order) (order.Order, error)
	GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (order.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, upd order.UpdateOrderModel) (order.Order, error)
	ChangeStatus(ctx context.Context, orderID uuid.UUID, newStatus status.Status, actorID uuid.UUID) (history.StatusChange, error)
	GetOrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]history.StatusChange, error)
	UploadAttachment(ctx context.Context, orderID uuid.UUID, kind order.AttachmentKind, filename string, data io.Reader) (string, error)
	SignAttachmentURL(ctx context.Context, orderID uuid.UUID, kind order.AttachmentKind) (string, error)
}

type analyticsService interface {
	BuildReport(ctx context.Context, period analytics.Period) (analytics.Report, error)
	ExportOrders(ctx context.Context) (*excelize.File, error)
}

type authService interface {
	Login(ctx context.Context, email, password string) (string, *user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

type floorService interface {
	Layout(ctx context.Context) ([]station.Station, error)
	SaveLayout(ctx context.Context, stations []station.Station) error
}

type fileStore interface {
	VerifyToken(tokenString string) (string, error)
	Open(path string) (io.ReadCloser, error)
}

type eventHub interface {
	Subscribe() (<-chan []byte, func())
}

type HTTPTransport struct {
	server    *http.Server
	router    *chi.Mux
	orders    orderService
	analytics analyticsService
	auth      authService
	floor     floorService
	files     fileStore
	hub       eventHub
}

func NewHTTPTransport(
	orders orderService,
	analytics analyticsService,
	auth authService,
	floor floorService,
	files fileStore,
	hub eventHub,
) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:    server,
		router:    router,
		orders:    orders,
		analytics: analytics,
		auth:      auth,
		floor:     floor,
		files:     files,
		hub:       hub,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport. Everything
// under /api/admin requires a valid token; the intake form, the floor scene,
// signed file links and login are public.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/docs/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "docs/openapi.json")
	})
	h.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Post("/auth/login", h.login)
		r.Get("/floor/layout", h.getFloorLayout)
		r.Get("/files/{token}", h.downloadFile)

		r.With(authmiddleware.NewAuthMiddleware, authmiddleware.NewRoleMiddleware(user.RoleAdmin)).
			Put("/floor/layout", h.saveFloorLayout)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authmiddleware.NewAuthMiddleware)

			r.Get("/orders", h.listOrders)
			r.Get("/orders/{id}", h.getOrder)
			r.Patch("/orders/{id}", h.updateOrder)
			r.Patch("/orders/{id}/status", h.changeStatus)
			r.Get("/orders/{id}/history", h.listOrderHistory)
			r.Post("/orders/{id}/attachments/{kind}", h.uploadAttachment)
			r.Get("/orders/{id}/attachments/{kind}/url", h.signAttachmentURL)
			r.Get("/users", h.listUsers)
			r.Get("/analytics", h.buildAnalyticsReport)
			r.Get("/reports/orders.xlsx", h.exportOrders)
			r.Get("/events", h.streamEvents)
		})
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orders)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) updateOrder(w http.ResponseWriter, r *http.Request) {
	updateorder.UpdateOrder(w, r, h.orders)
}

func (h *HTTPTransport) changeStatus(w http.ResponseWriter, r *http.Request) {
	changestatus.ChangeStatus(w, r, h.orders)
}

func (h *HTTPTransport) listOrderHistory(w http.ResponseWriter, r *http.Request) {
	orderhistory.ListHistory(w, r, h.orders)
}

func (h *HTTPTransport) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	attachments.Upload(w, r, h.orders)
}

func (h *HTTPTransport) signAttachmentURL(w http.ResponseWriter, r *http.Request) {
	attachments.SignURL(w, r, h.orders)
}

func (h *HTTPTransport) downloadFile(w http.ResponseWriter, r *http.Request) {
	attachments.Download(w, r, h.files)
}

func (h *HTTPTransport) buildAnalyticsReport(w http.ResponseWriter, r *http.Request) {
	analyticsreport.BuildReport(w, r, h.analytics)
}

func (h *HTTPTransport) exportOrders(w http.ResponseWriter, r *http.Request) {
	exportreport.ExportOrders(w, r, h.analytics)
}

func (h *HTTPTransport) login(w http.ResponseWriter, r *http.Request) {
	login.Login(w, r, h.auth)
}

func (h *HTTPTransport) listUsers(w http.ResponseWriter, r *http.Request) {
	listusers.ListUsers(w, r, h.auth)
}

func (h *HTTPTransport) getFloorLayout(w http.ResponseWriter, r *http.Request) {
	floorlayout.GetLayout(w, r, h.floor)
}

func (h *HTTPTransport) saveFloorLayout(w http.ResponseWriter, r *http.Request) {
	floorlayout.SaveLayout(w, r, h.floor)
}

func (h *HTTPTransport) streamEvents(w http.ResponseWriter, r *http.Request) {
	events.Stream(w, r, h.hub)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
