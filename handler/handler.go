// Package handler serves an executor over HTTP (net/http and fasthttp) and
// streams subscriptions over WebSocket.
package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/Protocol-Lattice/configql/ast"
	"github.com/Protocol-Lattice/configql/executor"
	"github.com/Protocol-Lattice/configql/lexer"
	"github.com/Protocol-Lattice/configql/parser"
	"github.com/Protocol-Lattice/configql/registry"
)

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

// GraphQLRequest represents a standard GraphQL request.
type GraphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables"`
}

// Error is one entry of a response's "errors" list.
type Error struct {
	Message string `json:"message"`
}

// Response is the body written for failed requests.
type Response struct {
	Data   interface{} `json:"data,omitempty"`
	Errors []Error     `json:"errors,omitempty"`
}

type requestIDKey struct{}

// RequestID returns the id of the request ctx belongs to.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Handler serves one executor.
type Handler struct {
	exec     *executor.Executor
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// New returns a Handler for exec. A nil logger uses the logrus standard
// logger.
func New(exec *executor.Executor, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		exec: exec,
		log:  log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Default serves the global executor.
var Default = New(registry.GetGlobalExecutor(), nil)

// GraphQL handles standard GraphQL HTTP requests with Default.
func GraphQL(w http.ResponseWriter, r *http.Request) { Default.GraphQL(w, r) }

// Subscription handles GraphQL subscriptions over WebSocket with Default.
func Subscription(w http.ResponseWriter, r *http.Request) { Default.Subscription(w, r) }

// Router mounts the GraphQL endpoint on /graphql and the subscription
// endpoint on /subscriptions, with panic recovery and access logging.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/graphql", h.GraphQL).Methods(http.MethodPost)
	r.HandleFunc("/subscriptions", h.Subscription).Methods(http.MethodGet)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(h.log), handlers.PrintRecoveryStack(true))(
		handlers.CombinedLoggingHandler(h.accessLog(), r),
	)
}

// accessLog writes each access log line to the handler's logger at info
// level.
func (h *Handler) accessLog() io.Writer {
	if w, ok := h.log.(interface {
		WriterLevel(logrus.Level) *io.PipeWriter
	}); ok {
		return w.WriterLevel(logrus.InfoLevel)
	}
	return logrus.StandardLogger().WriterLevel(logrus.InfoLevel)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.GraphQL(w, r)
}

// GraphQL handles a POSTed query or mutation.
func (h *Handler) GraphQL(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("unable to read body"))
		return
	}
	id := uuid.NewString()
	w.Header().Set(RequestIDHeader, id)
	status, out := h.execute(context.WithValue(r.Context(), requestIDKey{}, id), id, body)
	writeRaw(w, status, out)
}

// FastHTTP handles a POSTed query or mutation on a fasthttp server.
func (h *Handler) FastHTTP(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.Response.Header.Set(fasthttp.HeaderAllow, fasthttp.MethodPost)
		writeFast(ctx, http.StatusMethodNotAllowed, mustMarshal(errorResponse("method not allowed")))
		return
	}
	id := uuid.NewString()
	ctx.Response.Header.Set(RequestIDHeader, id)
	status, out := h.execute(context.WithValue(ctx, requestIDKey{}, id), id, ctx.PostBody())
	writeFast(ctx, status, out)
}

// execute runs one request body and returns the status and encoded body.
func (h *Handler) execute(ctx context.Context, id string, body []byte) (int, []byte) {
	log := h.log.WithField("request_id", id)

	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.WithError(err).Debug("invalid request body")
		return http.StatusBadRequest, mustMarshal(errorResponse("invalid JSON"))
	}
	if req.Variables == nil {
		req.Variables = make(map[string]interface{})
	}

	p := parser.New(lexer.New(req.Query))
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		log.WithField("errors", errs).Debug("query rejected")
		return http.StatusBadRequest, mustMarshal(errorResponse(errs...))
	}

	result, err := h.exec.Execute(ctx, doc, req.Variables)
	if err != nil {
		log.WithError(err).Warn("execution failed")
		return http.StatusInternalServerError, mustMarshal(errorResponse(err.Error()))
	}
	out, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Error("encode result")
		return http.StatusInternalServerError, mustMarshal(errorResponse("unable to encode result"))
	}
	return http.StatusOK, out
}

// Subscription upgrades to WebSocket, reads one subscription request and
// streams its events as JSON messages until the client goes away or the
// event channel closes.
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	log := h.log.WithField("request_id", id)

	_, msg, err := conn.ReadMessage()
	if err != nil {
		writeMessage(conn, errorResponse("failed to read subscription message"))
		return
	}
	var req GraphQLRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		writeMessage(conn, errorResponse("invalid subscription JSON"))
		return
	}
	field, err := subscriptionField(req.Query)
	if err != nil {
		writeMessage(conn, errorResponse(err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(context.WithValue(r.Context(), requestIDKey{}, id))
	defer cancel()
	// Reading is the only way to notice a closed connection.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events, err := h.exec.ExecuteSubscription(ctx, field, req.Variables)
	if err != nil {
		writeMessage(conn, errorResponse(fmt.Sprintf("subscription error: %v", err)))
		return
	}
	log.WithField("field", field.Name).Debug("subscription started")
	for {
		select {
		case <-ctx.Done():
			log.Debug("subscription closed by client")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			out, err := json.Marshal(Response{Data: map[string]interface{}{field.ResponseKey(): event}})
			if err != nil {
				log.WithError(err).Warn("encode event")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				log.WithError(err).Debug("failed to write event")
				return
			}
		}
	}
}

// subscriptionField returns the first field of a subscription operation.
func subscriptionField(query string) (*ast.Field, error) {
	p := parser.New(lexer.New(query))
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	op := doc.Operation()
	if op == nil {
		return nil, fmt.Errorf("no subscription definition found")
	}
	if op.Operation != ast.OperationSubscription {
		return nil, fmt.Errorf("provided operation is not a subscription")
	}
	if op.SelectionSet == nil || len(op.SelectionSet.Selections) == 0 {
		return nil, fmt.Errorf("subscription selection set is empty")
	}
	field, ok := op.SelectionSet.Selections[0].(*ast.Field)
	if !ok {
		return nil, fmt.Errorf("invalid subscription field")
	}
	return field, nil
}

func errorResponse(msgs ...string) Response {
	errs := make([]Error, len(msgs))
	for i, m := range msgs {
		errs[i] = Error{Message: m}
	}
	return Response{Errors: errs}
}

func mustMarshal(v interface{}) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	writeRaw(w, status, mustMarshal(v))
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeFast(ctx *fasthttp.RequestCtx, status int, body []byte) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func writeMessage(conn *websocket.Conn, v interface{}) {
	conn.WriteMessage(websocket.TextMessage, mustMarshal(v))
}
