package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/carlfranklin/avnrepo/internal/query"
	"github.com/carlfranklin/avnrepo/internal/repo"
	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
)

const defaultPrefix = "/api"

type Server struct {
	http *fiber.App
	api  fiber.Router
	addr string
	log  logger.Logger

	mu      sync.Mutex
	closers []func(context.Context) error
}

func NewServer(cfg Config, log logger.Logger) *Server {
	serveLog := log.With("api_http_server")

	fiberCfg := fiber.Config{
		ReadTimeout:             cfg.HTTP.ReadTimeout,
		WriteTimeout:            cfg.HTTP.WriteTimeout,
		IdleTimeout:             cfg.HTTP.IdleTimeout,
		DisableStartupMessage:   true,
		EnableTrustedProxyCheck: len(cfg.Proxy.Trusted) > 0,
		ProxyHeader:             cfg.Proxy.Header,
		TrustedProxies:          cfg.Proxy.Trusted,
	}

	fiberCfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			serveLog.Warn(errors.WrapFail(err, "handle http request"))
		}

		return c.Status(status).JSON(entityFailure[struct{}](err))
	}

	prefix := cfg.HTTP.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	app := fiber.New(fiberCfg)
	return &Server{
		http: app,
		api:  app.Group(prefix),
		addr: cfg.HTTP.Addr,
		log:  serveLog,
	}
}

// App exposes the underlying fiber application, e.g. for app.Test.
func (s *Server) App() *fiber.App {
	return s.http
}

func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WrapFailf(err, "listen on %s", s.addr)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until it fails or ctx is done.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Listener(ln) }()

	s.log.Infof("serving on %s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	err := s.http.ShutdownWithContext(ctx)
	if err != nil {
		errs = append(errs, errors.WrapFail(err, "shutdown http server"))
	}

	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for _, closeRepo := range closers {
		err = closeRepo(ctx)
		if err != nil {
			errs = append(errs, errors.WrapFail(err, "close repo"))
		}
	}

	return errors.Collapse(errs)
}

type MountOption[T repo.Entity] func(*resource[T])

// BeforeInsert transforms or rejects entities before they are inserted.
// Returned validator.ValidationErrors are reported one message per field.
func BeforeInsert[T repo.Entity](hook func(T) (T, error)) MountOption[T] {
	return func(r *resource[T]) {
		r.beforeInsert = hook
	}
}

// BeforeUpdate transforms or rejects entities before they replace stored ones.
func BeforeUpdate[T repo.Entity](hook func(T) (T, error)) MountOption[T] {
	return func(r *resource[T]) {
		r.beforeUpdate = hook
	}
}

// Mount exposes r under <prefix>/<name>. The server closes r on Shutdown.
func Mount[T repo.Entity](s *Server, name string, r repo.Repo[T], opts ...MountOption[T]) {
	res := &resource[T]{
		repo: r,
		log:  s.log.With(name),
	}
	for _, opt := range opts {
		opt(res)
	}

	g := s.api.Group("/" + strings.Trim(name, "/"))
	g.Get("/", res.handleGetAll)
	g.Post("/query", res.handleQuery)
	g.Get("/:id", res.handleGetByID)
	g.Post("/", res.handleInsert)
	g.Put("/", res.handleUpdate)
	g.Delete("/:id", res.handleDelete)
	g.Delete("/", res.handleDeleteAll)

	s.mu.Lock()
	s.closers = append(s.closers, r.Close)
	s.mu.Unlock()
}

type resource[T repo.Entity] struct {
	repo repo.Repo[T]
	log  logger.Logger

	beforeInsert func(T) (T, error)
	beforeUpdate func(T) (T, error)
}

func (r *resource[T]) handleGetAll(c *fiber.Ctx) error {
	items, err := r.repo.GetAll(c.UserContext())
	if err != nil {
		return r.sendList(c, err)
	}
	return c.JSON(listOK(items))
}

func (r *resource[T]) handleQuery(c *fiber.Ctx) error {
	var filter query.Filter
	err := c.BodyParser(&filter)
	if err != nil {
		return r.sendList(c, badRequest(errors.WrapFail(err, "parse query filter")))
	}

	res, err := r.repo.Get(c.UserContext(), filter)
	if err != nil {
		return r.sendList(c, err)
	}

	if res.Projected() {
		if records := res.Records(); records != nil {
			return c.JSON(listOK(records))
		}
	}
	return c.JSON(listOK(res.Items))
}

func (r *resource[T]) handleGetByID(c *fiber.Ctx) error {
	item, err := r.repo.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return r.sendEntity(c, err)
	}
	return c.JSON(entityOK(item))
}

func (r *resource[T]) handleInsert(c *fiber.Ctx) error {
	item, err := r.parseEntity(c, r.beforeInsert)
	if err != nil {
		return r.sendEntity(c, err)
	}

	item, err = r.repo.Insert(c.UserContext(), item)
	if err != nil {
		return r.sendEntity(c, err)
	}
	return c.Status(http.StatusCreated).JSON(entityOK(item))
}

func (r *resource[T]) handleUpdate(c *fiber.Ctx) error {
	item, err := r.parseEntity(c, r.beforeUpdate)
	if err != nil {
		return r.sendEntity(c, err)
	}

	item, err = r.repo.Update(c.UserContext(), item)
	if err != nil {
		return r.sendEntity(c, err)
	}
	return c.JSON(entityOK(item))
}

func (r *resource[T]) handleDelete(c *fiber.Ctx) error {
	id := c.Params("id")

	deleted, err := r.repo.Delete(c.UserContext(), id)
	if err != nil {
		return r.sendEntity(c, err)
	}
	if !deleted {
		return r.sendEntity(c, errors.Wrapf(repo.ErrNotFound, "delete %q", id))
	}
	return c.JSON(EntityResponse[T]{Success: true, ErrorMessages: []string{}})
}

func (r *resource[T]) handleDeleteAll(c *fiber.Ctx) error {
	err := r.repo.DeleteAll(c.UserContext())
	if err != nil {
		return r.sendList(c, err)
	}
	return c.JSON(listOK[T](nil))
}

func (r *resource[T]) parseEntity(c *fiber.Ctx, hook func(T) (T, error)) (T, error) {
	var item T
	err := c.BodyParser(&item)
	if err != nil {
		return item, badRequest(errors.WrapFail(err, "parse entity"))
	}

	if hook != nil {
		return hook(item)
	}
	return item, nil
}

func (r *resource[T]) sendEntity(c *fiber.Ctx, err error) error {
	return c.Status(r.status(err)).JSON(entityFailure[T](err))
}

func (r *resource[T]) sendList(c *fiber.Ctx, err error) error {
	return c.Status(r.status(err)).JSON(listFailure[T](err))
}

// status maps repository and query errors onto HTTP codes and logs what the
// client can't fix.
func (r *resource[T]) status(err error) int {
	var (
		unknownProp   *query.UnknownPropertyError
		unsupportedOp *query.UnsupportedOperatorError
		unsupportedTy *query.UnsupportedTypeError
		conversion    *query.ValueConversionError
		invalid       validator.ValidationErrors
		malformed     *badRequestError
		store         *repo.StoreAccessError
	)

	switch {
	case errors.As(err, &unknownProp),
		errors.As(err, &unsupportedOp),
		errors.As(err, &unsupportedTy),
		errors.As(err, &conversion),
		errors.As(err, &invalid),
		errors.As(err, &malformed),
		errors.Is(err, repo.ErrMissingID):
		return http.StatusBadRequest
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repo.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &store):
		r.log.Error(err)
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		r.log.Error(err)
		return http.StatusInternalServerError
	}
}

// badRequestError marks a request the client has to fix.
type badRequestError struct {
	err error
}

func badRequest(err error) error {
	return &badRequestError{err: err}
}

func (e *badRequestError) Error() string {
	return e.err.Error()
}

func (e *badRequestError) Unwrap() error {
	return e.err
}
